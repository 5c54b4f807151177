package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/book-expert/lingocast/internal/core"
)

const (
	natsContentTypeHeader = "Content-Type"
	natsURLScheme         = "nats-object://"
)

// NatsObjectStore implements core.ObjectStore using NATS JetStream.
type NatsObjectStore struct {
	bucket        string
	store         nats.ObjectStore
	publicBaseURL string
}

// NewNatsObjectStore creates the bucket if needed and binds to it.
func NewNatsObjectStore(jetstreamContext nats.JetStreamContext, bucketName, publicBaseURL string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("LingoCast audio for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		bucket:        bucketName,
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Upload saves an object to the NATS object store.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nats.Header{natsContentTypeHeader: []string{contentType}},
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: failed to put object '%s' to bucket '%s': %w", core.ErrUploadFailed, key, n.bucket, err)
	}

	return nil
}

// PublicURL returns the gateway link of an object, or a nats-object:// locator
// when no gateway is configured.
func (n *NatsObjectStore) PublicURL(key string) (string, error) {
	if n.publicBaseURL == "" {
		return natsURLScheme + n.bucket + "/" + key, nil
	}

	return n.publicBaseURL + "/" + n.bucket + "/" + key, nil
}
