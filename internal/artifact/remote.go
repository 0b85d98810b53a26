package artifact

import (
	"context"
)

// BlobAPI is the slice of the remote release service the remote-backed
// store needs: simple keyed blob exchange across a process boundary.
type BlobAPI interface {
	PublishArtifact(ctx context.Context, name string, payload []byte) error
	FetchArtifact(ctx context.Context, name string) ([]byte, error)
}

// RemoteStore is a Store backed by the hosting service's artifact
// endpoints. It lets stages of one run hand artifacts to stages scheduled
// in another process.
type RemoteStore struct {
	api BlobAPI
}

// NewRemote creates a Store that delegates to the given artifact API.
func NewRemote(api BlobAPI) *RemoteStore {
	return &RemoteStore{api: api}
}

// Put publishes the artifact through the remote service.
func (s *RemoteStore) Put(ctx context.Context, name string, payload []byte) error {
	return s.api.PublishArtifact(ctx, name, payload)
}

// Get fetches the artifact from the remote service.
func (s *RemoteStore) Get(ctx context.Context, name string) ([]byte, error) {
	return s.api.FetchArtifact(ctx, name)
}
