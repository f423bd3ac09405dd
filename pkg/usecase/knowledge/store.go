package knowledge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

// ManualCluster is the cluster of facts entered by hand
const ManualCluster = "Project"

// ErrEmptyContent is returned when a hand-entered fact is blank
var ErrEmptyContent = goerr.New("knowledge content is empty")

// Cluster is one group of context-eligible knowledge
type Cluster struct {
	Name     string
	Contents []string
}

// Store holds the knowledge items in memory and mirrors the whole set to the
// key/value store on every mutation. Concurrent writers overwrite each other
// (last write wins).
type Store struct {
	kv repository.KeyValueStore

	mu    sync.RWMutex
	items []*model.KnowledgeItem
}

// New creates an empty store. Call Load to read the persisted set.
func New(kv repository.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// Load replaces the in-memory set with the persisted one. An absent or
// malformed blob yields an empty set; only backend failures are returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, repository.KeyKnowledge)
	if err != nil {
		return goerr.Wrap(err, "failed to read knowledge", goerr.V("key", repository.KeyKnowledge))
	}

	items := decodeItems(ctx, data)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	logging.From(ctx).Debug("knowledge loaded", "count", len(items))
	return nil
}

func decodeItems(ctx context.Context, data []byte) []*model.KnowledgeItem {
	if len(data) == 0 {
		return nil
	}

	var raw []*model.KnowledgeItem
	if err := json.Unmarshal(data, &raw); err != nil {
		logging.From(ctx).Warn("ignoring malformed knowledge blob", "error", err)
		return nil
	}

	seen := make(map[model.KnowledgeID]struct{}, len(raw))
	items := make([]*model.KnowledgeItem, 0, len(raw))
	for _, item := range raw {
		if item == nil {
			continue
		}
		if item.ID == "" {
			item.ID = model.NewKnowledgeID()
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		item.Normalize()
		items = append(items, item)
	}
	return items
}

// Add appends one item and persists the set
func (s *Store) Add(ctx context.Context, item *model.KnowledgeItem) error {
	return s.AddAll(ctx, []*model.KnowledgeItem{item})
}

// AddManual stores a fact entered by hand. It is neutral with full
// confidence, so it is listed but never injected into the agent context.
func (s *Store) AddManual(ctx context.Context, cluster, content string) (*model.KnowledgeItem, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	cluster = strings.TrimSpace(cluster)
	if cluster == "" {
		cluster = ManualCluster
	}

	item := &model.KnowledgeItem{
		Cluster:    cluster,
		Content:    content,
		Confidence: 100,
		Type:       model.KnowledgeTypeNeutral,
	}
	if err := s.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddAll appends items with a single persist. Missing timestamps are
// assigned, and so are ids that are missing or already taken.
func (s *Store) AddAll(ctx context.Context, items []*model.KnowledgeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[model.KnowledgeID]struct{}, len(s.items)+len(items))
	for _, item := range s.items {
		taken[item.ID] = struct{}{}
	}

	now := time.Now()
	added := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, dup := taken[item.ID]; item.ID == "" || dup {
			item.ID = model.NewKnowledgeID()
		}
		taken[item.ID] = struct{}{}
		if item.AddedAt.IsZero() {
			item.AddedAt = now
		}
		item.Normalize()
		s.items = append(s.items, item)
		added++
	}
	if added == 0 {
		return nil
	}

	return s.persist(ctx)
}

// Remove deletes the first item with the given id. It reports false when no
// item matched; nothing is persisted then.
func (s *Store) Remove(ctx context.Context, id model.KnowledgeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.ID != id {
			continue
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true, s.persist(ctx)
	}
	return false, nil
}

// List returns a copy of the items in insertion order
func (s *Store) List() []*model.KnowledgeItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.KnowledgeItem, len(s.items))
	for i, item := range s.items {
		copied := *item
		out[i] = &copied
	}
	return out
}

// FilteredForContext groups beneficial items by cluster, clusters in order of
// first appearance and contents in insertion order. Other types never reach
// the reasoning context.
func (s *Store) FilteredForContext() []Cluster {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clusters []Cluster
	index := make(map[string]int)
	for _, item := range s.items {
		if item.Type != model.KnowledgeTypeBeneficial {
			continue
		}
		i, ok := index[item.Cluster]
		if !ok {
			i = len(clusters)
			index[item.Cluster] = i
			clusters = append(clusters, Cluster{Name: item.Cluster})
		}
		clusters[i].Contents = append(clusters[i].Contents, item.Content)
	}
	return clusters
}

// persist must be called with the lock held
func (s *Store) persist(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []*model.KnowledgeItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal knowledge")
	}
	if err := s.kv.Set(ctx, repository.KeyKnowledge, data); err != nil {
		return goerr.Wrap(err, "failed to write knowledge", goerr.V("key", repository.KeyKnowledge))
	}
	return nil
}
