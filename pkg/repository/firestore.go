package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCollection = "nexusops"

// kvDocument is the Firestore document shape of one key
type kvDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Firestore stores each key as a document in one collection
type Firestore struct {
	client     *firestore.Client
	collection string
}

// FirestoreOption is a functional option for Firestore
type FirestoreOption func(*Firestore)

// WithCollection overrides the collection holding the key documents
func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// NewFirestore creates a Firestore-backed KeyValueStore
func NewFirestore(ctx context.Context, projectID, databaseID string, clientOpts []option.ClientOption, opts ...FirestoreOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	f := &Firestore{
		client:     client,
		collection: defaultCollection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.client.Collection(f.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}
	return []byte(doc.Value), nil
}

func (f *Firestore) Set(ctx context.Context, key string, value []byte) error {
	doc := kvDocument{
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	if _, err := f.client.Collection(f.collection).Doc(key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to set document", goerr.V("key", key))
	}
	return nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}
