package arr

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tag is a tag as stored by Radarr or Sonarr.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Entity is a movie or a series. Raw holds the document exactly as the server
// returned it so that an update can send every field back untouched.
type Entity struct {
	ID     int
	Title  string
	Tags   []int
	FileID int
	Raw    json.RawMessage
}

// FileRecord is the quality metadata of one media file. Every field is
// optional on the wire.
type FileRecord struct {
	Score        *int
	Resolution   *int
	ReleaseGroup *string
}

// Kind captures what differs between movies and series.
type Kind interface {
	Name() string
	// CollectionPath is the API resource listing and updating entities.
	CollectionPath() string
	FetchFiles(ctx context.Context, c *Client, e Entity) ([]FileRecord, error)
	UpdatePayload(e Entity, tagIDs []int) ([]byte, error)
}

type entityDoc struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Tags        []int  `json:"tags"`
	MovieFileID int    `json:"movieFileId"`
}

func decodeEntity(raw json.RawMessage) (Entity, error) {
	var doc entityDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Entity{}, err
	}
	return Entity{
		ID:     doc.ID,
		Title:  doc.Title,
		Tags:   doc.Tags,
		FileID: doc.MovieFileID,
		Raw:    raw,
	}, nil
}

type fileDoc struct {
	CustomFormatScore *int    `json:"customFormatScore"`
	ReleaseGroup      *string `json:"releaseGroup"`
	Quality           struct {
		Quality struct {
			Resolution *int `json:"resolution"`
		} `json:"quality"`
	} `json:"quality"`
}

func (d fileDoc) record() FileRecord {
	return FileRecord{
		Score:        d.CustomFormatScore,
		Resolution:   d.Quality.Quality.Resolution,
		ReleaseGroup: d.ReleaseGroup,
	}
}

// replaceTags rewrites the tags field of raw and keeps everything else as-is.
func replaceTags(raw json.RawMessage, tagIDs []int) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode entity document: %w", err)
		}
	}
	if tagIDs == nil {
		tagIDs = []int{}
	}
	tags, err := json.Marshal(tagIDs)
	if err != nil {
		return nil, err
	}
	doc["tags"] = tags
	return json.Marshal(doc)
}
