package repository_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/adapter"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
)

// testKeyValueStore runs the behavior every backend must share
func testKeyValueStore(t *testing.T, kv repository.KeyValueStore) {
	ctx := context.Background()

	t.Run("absent key returns nil", func(t *testing.T) {
		v, err := kv.Get(ctx, "missing-key")
		gt.NoError(t, err)
		gt.V(t, v).Nil()
	})

	t.Run("set then get", func(t *testing.T) {
		gt.NoError(t, kv.Set(ctx, repository.KeyKnowledge, []byte(`[{"id":"1"}]`)))

		v, err := kv.Get(ctx, repository.KeyKnowledge)
		gt.NoError(t, err)
		gt.Equal(t, string(v), `[{"id":"1"}]`)
	})

	t.Run("set overwrites wholesale", func(t *testing.T) {
		gt.NoError(t, kv.Set(ctx, repository.KeySettings, []byte(`{"host":"a"}`)))
		gt.NoError(t, kv.Set(ctx, repository.KeySettings, []byte(`{"host":"b"}`)))

		v, err := kv.Get(ctx, repository.KeySettings)
		gt.NoError(t, err)
		gt.Equal(t, string(v), `{"host":"b"}`)
	})

	t.Run("keys are independent", func(t *testing.T) {
		gt.NoError(t, kv.Set(ctx, repository.KeyAgents, []byte(`[]`)))

		v, err := kv.Get(ctx, repository.KeyKnowledge)
		gt.NoError(t, err)
		gt.Equal(t, string(v), `[{"id":"1"}]`)
	})
}

func TestMemory(t *testing.T) {
	testKeyValueStore(t, repository.NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemory()

	value := []byte("abc")
	gt.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x'

	v, err := kv.Get(ctx, "k")
	gt.NoError(t, err)
	gt.Equal(t, string(v), "abc")
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "nexusops.db")

	kv, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer kv.Close()

	testKeyValueStore(t, kv)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nexusops.db")

	kv, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	gt.NoError(t, kv.Set(ctx, repository.KeyKnowledge, []byte(`[]`)))
	gt.NoError(t, kv.Close())

	reopened, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, repository.KeyKnowledge)
	gt.NoError(t, err)
	gt.Equal(t, string(v), `[]`)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := repository.NewSQLite(context.Background(), "")
	gt.Error(t, err)
}

// mockStorage is an in-memory adapter.Storage
type mockStorage struct {
	data map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		data: make(map[string][]byte),
	}
}

func (m *mockStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &mockWriteCloser{
		Buffer:  &bytes.Buffer{},
		storage: m,
		key:     key,
	}, nil
}

type mockWriteCloser struct {
	*bytes.Buffer
	storage *mockStorage
	key     string
}

func (m *mockWriteCloser) Close() error {
	m.storage.data[m.key] = m.Buffer.Bytes()
	return nil
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, goerr.Wrap(adapter.ErrObjectNotFound, "data not found", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestCloudStorage(t *testing.T) {
	storage := newMockStorage()
	testKeyValueStore(t, repository.NewCloudStorage(storage))

	_, ok := storage.data["nexus_knowledge.json"]
	gt.True(t, ok)
}
