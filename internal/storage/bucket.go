package storage

import (
	"context"
	"io"
	"strings"
)

// Object is a stored file. ID is the backend's stable identifier, which events
// reference through image_id.
type Object struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Bucket interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Upload(ctx context.Context, name string, body io.Reader, contentType string) (Object, error)
	PublicURL(name string) string
	Remove(ctx context.Context, names ...string) error
}

// Buckets groups the three buckets the site writes to.
type Buckets struct {
	Images  Bucket
	Waivers Bucket
	Gallery Bucket
}

// FindByID returns the object whose ID matches id.
func FindByID(objects []Object, id string) (Object, bool) {
	for _, o := range objects {
		if o.ID == id {
			return o, true
		}
	}
	return Object{}, false
}

// ObjectNameFromURL extracts the object name from a public URL produced by
// bucket. ok is false when the URL does not point into the bucket.
func ObjectNameFromURL(bucket Bucket, url string) (string, bool) {
	base := bucket.PublicURL("")
	if base == "" || !strings.HasPrefix(url, base) {
		return "", false
	}
	name := strings.TrimPrefix(url, base)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}
