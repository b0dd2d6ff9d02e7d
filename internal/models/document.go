package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type ContentType string

const (
	ContentMarkdown ContentType = "markdown"
	ContentHTML     ContentType = "html"
	ContentText     ContentType = "text"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentMarkdown, ContentHTML, ContentText:
		return true
	}
	return false
}

// Tags is an ordered tag list stored as a JSON array in a text column.
type Tags []string

// NormalizeTags trims every tag and drops empty and repeated ones, keeping
// first-seen order.
func NormalizeTags(in []string) Tags {
	out := Tags{}
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Value implements the driver.Valuer interface for database storage
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (t *Tags) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Tags", value)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	*t = Tags(tags)
	return nil
}

// Folder is a node of the folder tree. Path is derived from the parent's
// path and the slugified name and is never set independently.
type Folder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	ParentID    *int64    `json:"parent_id"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f Folder) Resource() Resource {
	return Resource{Type: ResourceFolder, ID: f.ID}
}

// Document belongs to a folder, or to the root when FolderID is nil.
// (Slug, FolderID) is unique.
type Document struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	FolderID    *int64      `json:"folder_id"`
	IsPublished bool        `json:"is_published"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	CreatedBy   int64       `json:"created_by"`
	UpdatedBy   *int64      `json:"updated_by,omitempty"`
	Tags        Tags        `json:"tags"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (d Document) Resource() Resource {
	return Resource{Type: ResourceDocument, ID: d.ID}
}
