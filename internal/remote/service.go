// Package remote adapts the hosting platform's release API: creating a
// release record, exchanging named artifacts, and uploading release assets.
// Every operation is a network call to a shared external service, so
// failures are retried a bounded number of times with backoff before they
// surface as a terminal *Error.
package remote

import (
	"context"
	"fmt"
)

// ReleaseRecord is the hosted release created once per pipeline run. It is
// immutable after creation; downstream stages only ever read it.
type ReleaseRecord struct {
	Tag        string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	UploadURL  string `json:"upload_url"`
}

// Service is the fixed contract of the hosting platform.
type Service interface {
	CreateRelease(ctx context.Context, tag string, draft, prerelease bool) (*ReleaseRecord, error)
	PublishArtifact(ctx context.Context, name string, payload []byte) error
	FetchArtifact(ctx context.Context, name string) ([]byte, error)
	UploadAsset(ctx context.Context, uploadURL, assetPath, assetName, contentType string) error
}

// Error is the failure kind for remote calls. Unlike build or package
// failures it has already been retried by the time callers see it.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s: http %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
