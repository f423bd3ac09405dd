package repository

import (
	"context"
)

// Fixed keys of the persisted blobs
const (
	KeyKnowledge = "nexus_knowledge"
	KeySettings  = "nexus_ssh_settings"
	KeyAgents    = "nexus_agents"
)

// KeyValueStore is an opaque key/value byte store. Values are whole JSON
// blobs that callers overwrite on every mutation; there are no transactions.
type KeyValueStore interface {
	// Get returns the stored value, or nil without error when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key
	Set(ctx context.Context, key string, value []byte) error
}
