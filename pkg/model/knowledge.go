package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultCluster is used when a knowledge item arrives without a cluster label
	DefaultCluster = "General"
	// DefaultConfidence is used when the model omits a confidence score
	DefaultConfidence = 90
)

var (
	ErrInvalidKnowledgeType = goerr.New("invalid knowledge type")
)

type KnowledgeID string

// NewKnowledgeID generates a new unique KnowledgeID
func NewKnowledgeID() KnowledgeID {
	return KnowledgeID(uuid.New().String())
}

// KnowledgeType is the trust classification of a knowledge item
type KnowledgeType string

const (
	KnowledgeTypeBeneficial KnowledgeType = "beneficial"
	KnowledgeTypeHarmful    KnowledgeType = "harmful"
	KnowledgeTypeNeutral    KnowledgeType = "neutral"
)

// Validate checks if the knowledge type is valid
func (t KnowledgeType) Validate() error {
	switch t {
	case KnowledgeTypeBeneficial, KnowledgeTypeHarmful, KnowledgeTypeNeutral:
		return nil
	default:
		return goerr.Wrap(ErrInvalidKnowledgeType, "unknown knowledge type", goerr.V("type", t))
	}
}

// ParseKnowledgeType returns the matching type, or neutral for anything unknown
func ParseKnowledgeType(s string) KnowledgeType {
	t := KnowledgeType(s)
	if t.Validate() != nil {
		return KnowledgeTypeNeutral
	}
	return t
}

// KnowledgeItem is a single fact with a trust classification, clustered by topic
type KnowledgeItem struct {
	ID         KnowledgeID   `json:"id"`
	Cluster    string        `json:"cluster"`
	Content    string        `json:"content"`
	AddedAt    time.Time     `json:"addedAt"`
	Confidence int           `json:"confidence"`
	Type       KnowledgeType `json:"type"`
	SourceURL  string        `json:"sourceUrl,omitempty"`
}

// UnmarshalJSON accepts blobs written by the browser dashboard, which used
// "category" where the cluster label now lives.
func (k *KnowledgeItem) UnmarshalJSON(data []byte) error {
	type plain KnowledgeItem
	var raw struct {
		plain
		Category string `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*k = KnowledgeItem(raw.plain)
	if k.Cluster == "" && raw.Category != "" {
		k.Cluster = raw.Category
	}
	return nil
}

// Normalize enforces the item invariants in place: confidence in [0,100],
// a known type and a non-empty cluster.
func (k *KnowledgeItem) Normalize() {
	k.Confidence = ClampConfidence(k.Confidence)
	k.Type = ParseKnowledgeType(string(k.Type))
	if k.Cluster == "" {
		k.Cluster = DefaultCluster
	}
}

// ClampConfidence bounds a confidence score to [0,100]
func ClampConfidence(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
