package arr

import (
	"context"
	"fmt"
	"net/http"
)

// Radarr is the Kind for movies. A movie has at most one file.
type Radarr struct{}

func (Radarr) Name() string { return "movie" }

func (Radarr) CollectionPath() string { return "movie" }

func (Radarr) FetchFiles(ctx context.Context, c *Client, e Entity) ([]FileRecord, error) {
	if e.FileID == 0 {
		return nil, nil
	}
	var doc fileDoc
	path := fmt.Sprintf("moviefile/%d", e.FileID)
	if err := c.do(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return nil, fmt.Errorf("failed to fetch movie file %d: %w", e.FileID, err)
	}
	return []FileRecord{doc.record()}, nil
}

func (Radarr) UpdatePayload(e Entity, tagIDs []int) ([]byte, error) {
	return replaceTags(e.Raw, tagIDs)
}
