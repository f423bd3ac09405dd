package profile

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"gopkg.in/yaml.v3"
)

var (
	ErrAgentNotFound = goerr.New("agent not found")
)

// Default agent ids
const (
	OperatorID model.AgentID = "operator"
	SentinelID model.AgentID = "sentinel"
)

// Defaults returns the built-in agents: a user-side operator and an internal watchdog
func Defaults() []*model.AgentProfile {
	return []*model.AgentProfile{
		{
			ID:          OperatorID,
			Name:        "NexusOps",
			Role:        "Autonomous DevOps architect",
			Type:        model.AgentTypeUserSide,
			Level:       1,
			NextLevelXP: 1000,
			Skills: []*model.AgentSkill{
				{Name: "Bash", Level: 1, Description: "Shell scripting and automation"},
				{Name: "Docker", Level: 1, Description: "Container builds and deployment"},
			},
		},
		{
			ID:          SentinelID,
			Name:        "Sentinel",
			Role:        "Internal infrastructure watchdog",
			Type:        model.AgentTypeWatchdog,
			Level:       1,
			NextLevelXP: 1000,
			Skills: []*model.AgentSkill{
				{Name: "Monitoring", Level: 1, Description: "Anomaly detection and alerting"},
			},
		},
	}
}

type seedFile struct {
	Agents []*model.AgentProfile `yaml:"agents"`
}

// LoadSeedFile reads agent profiles from a YAML file of the form
// "agents: [...]"
func LoadSeedFile(path string) ([]*model.AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read agents file", goerr.V("path", path))
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse agents file", goerr.V("path", path))
	}
	if len(seed.Agents) == 0 {
		return nil, goerr.New("agents file has no agents", goerr.V("path", path))
	}

	for _, p := range seed.Agents {
		if p == nil {
			return nil, goerr.New("empty agent entry", goerr.V("path", path))
		}
		if p.ID == "" {
			p.ID = model.AgentID(strings.ToLower(p.Name))
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid agent in agents file", goerr.V("path", path))
		}
	}
	return seed.Agents, nil
}

// Store is the agent profile registry, persisted as one blob
type Store struct {
	kv   repository.KeyValueStore
	seed []*model.AgentProfile

	mu       sync.RWMutex
	profiles []*model.AgentProfile
}

type Option func(*Store)

// WithSeed replaces the built-in defaults used when nothing is persisted
func WithSeed(profiles []*model.AgentProfile) Option {
	return func(s *Store) {
		if len(profiles) > 0 {
			s.seed = profiles
		}
	}
}

func New(kv repository.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:   kv,
		seed: Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted profiles. An absent, malformed or empty blob
// falls back to the seed profiles.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, repository.KeyAgents)
	if err != nil {
		return goerr.Wrap(err, "failed to read agents", goerr.V("key", repository.KeyAgents))
	}

	profiles := decodeProfiles(ctx, data)
	if len(profiles) == 0 {
		profiles = cloneAll(s.seed)
	}

	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()
	return nil
}

func decodeProfiles(ctx context.Context, data []byte) []*model.AgentProfile {
	if len(data) == 0 {
		return nil
	}

	var raw []*model.AgentProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		logging.From(ctx).Warn("ignoring malformed agents blob", "error", err)
		return nil
	}

	seen := make(map[model.AgentID]struct{}, len(raw))
	profiles := make([]*model.AgentProfile, 0, len(raw))
	for _, p := range raw {
		if p == nil {
			continue
		}
		p.Normalize()
		if err := p.Validate(); err != nil {
			logging.From(ctx).Warn("skipping invalid agent profile", "error", err)
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		profiles = append(profiles, p)
	}
	return profiles
}

// Find returns a copy of the profile whose id or name (case-insensitive)
// matches ref
func (s *Store) Find(ref string) (*model.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if string(p.ID) == ref {
			return clone(p), nil
		}
	}
	for _, p := range s.profiles {
		if strings.EqualFold(p.Name, ref) {
			return clone(p), nil
		}
	}
	return nil, goerr.Wrap(ErrAgentNotFound, "no agent matches", goerr.V("ref", ref))
}

// List returns copies of all profiles
func (s *Store) List() []*model.AgentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.profiles)
}

// Put inserts or replaces the profile with the same id and persists the set
func (s *Store) Put(ctx context.Context, profile *model.AgentProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(profile)
	replaced := false
	for i, p := range s.profiles {
		if p.ID == profile.ID {
			if p.Type != profile.Type {
				return goerr.New("agent type cannot change",
					goerr.V("id", profile.ID),
					goerr.V("from", p.Type),
					goerr.V("to", profile.Type))
			}
			s.profiles[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.profiles = append(s.profiles, stored)
	}

	data, err := json.Marshal(s.profiles)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal agents")
	}
	if err := s.kv.Set(ctx, repository.KeyAgents, data); err != nil {
		return goerr.Wrap(err, "failed to write agents", goerr.V("key", repository.KeyAgents))
	}
	return nil
}

func clone(p *model.AgentProfile) *model.AgentProfile {
	c := *p
	c.Skills = make([]*model.AgentSkill, 0, len(p.Skills))
	for _, s := range p.Skills {
		if s == nil {
			continue
		}
		skill := *s
		c.Skills = append(c.Skills, &skill)
	}
	return &c
}

func cloneAll(profiles []*model.AgentProfile) []*model.AgentProfile {
	out := make([]*model.AgentProfile, len(profiles))
	for i, p := range profiles {
		out[i] = clone(p)
	}
	return out
}
