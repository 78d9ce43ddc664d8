package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"handcrafted-haven/internal/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSBackend keeps objects in a MongoDB GridFS bucket, for deployments
// where several API instances share uploads.
type GridFSBackend struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

func NewGridFSBackend(ctx context.Context, uri, database string) (*GridFSBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName("uploads"))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFSBackend{client: client, bucket: bucket}, nil
}

func (b *GridFSBackend) Save(_ context.Context, key string, r io.Reader, contentType string) error {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	_, err := b.bucket.UploadFromStream(key, r, opts)
	return err
}

func (b *GridFSBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	stream, err := b.bucket.OpenDownloadStreamByName(key)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, apperr.NotFound("file not found: %s", key)
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (b *GridFSBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}
