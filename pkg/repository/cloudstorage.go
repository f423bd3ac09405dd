package repository

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/adapter"
)

// CloudStorage keeps each key as one JSON object in a bucket
type CloudStorage struct {
	storage adapter.Storage
}

func NewCloudStorage(storage adapter.Storage) *CloudStorage {
	return &CloudStorage{storage: storage}
}

func objectName(key string) string {
	return key + ".json"
}

func (s *CloudStorage) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.storage.Get(ctx, objectName(key))
	if errors.Is(err, adapter.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}
	return data, nil
}

func (s *CloudStorage) Set(ctx context.Context, key string, value []byte) error {
	writer, err := s.storage.Put(ctx, objectName(key))
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}

	if _, err := writer.Write(value); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}
