package arr

import (
	"context"
	"fmt"
	"net/http"
)

// Sonarr is the Kind for series. Each episode on disk contributes one file.
type Sonarr struct{}

func (Sonarr) Name() string { return "series" }

func (Sonarr) CollectionPath() string { return "series" }

func (Sonarr) FetchFiles(ctx context.Context, c *Client, e Entity) ([]FileRecord, error) {
	var docs []fileDoc
	path := fmt.Sprintf("episodefile?seriesId=%d", e.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, fmt.Errorf("failed to fetch episode files for series %d: %w", e.ID, err)
	}
	records := make([]FileRecord, len(docs))
	for i, doc := range docs {
		records[i] = doc.record()
	}
	return records, nil
}

func (Sonarr) UpdatePayload(e Entity, tagIDs []int) ([]byte, error) {
	return replaceTags(e.Raw, tagIDs)
}

// KindFor maps a configuration value to a Kind.
func KindFor(name string) (Kind, error) {
	switch name {
	case "radarr":
		return Radarr{}, nil
	case "sonarr":
		return Sonarr{}, nil
	default:
		return nil, fmt.Errorf("unsupported arr kind: %s", name)
	}
}
