package model

import (
	"slices"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// MaxSkillLevel is the level at which a skill stops accumulating progress
	MaxSkillLevel = 10
	// ProgressPerLevel is the amount of progress needed for one skill level
	ProgressPerLevel = 100

	defaultNextLevelXP = 1000
)

var (
	ErrInvalidAgentType = goerr.New("invalid agent type")
)

type AgentID string

// NewAgentID generates a new unique AgentID
func NewAgentID() AgentID {
	return AgentID(uuid.New().String())
}

// AgentType selects the capability bundle of an agent. It never changes after creation.
type AgentType string

const (
	AgentTypeUserSide AgentType = "USER_SIDE"
	AgentTypeWatchdog AgentType = "WATCHDOG"
	AgentTypeLearning AgentType = "LEARNING"
	AgentTypeAdmin    AgentType = "ADMIN"
)

// Validate checks if the agent type is valid
func (t AgentType) Validate() error {
	switch t {
	case AgentTypeUserSide, AgentTypeWatchdog, AgentTypeLearning, AgentTypeAdmin:
		return nil
	default:
		return goerr.Wrap(ErrInvalidAgentType, "unknown agent type", goerr.V("type", t))
	}
}

// AgentSkill is a named competence with a level (1-10) and percent progress to the next level
type AgentSkill struct {
	Name        string `json:"name" yaml:"name"`
	Level       int    `json:"level" yaml:"level"`
	Progress    int    `json:"progress" yaml:"progress"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// GainXP adds xp to the skill progress. Every full 100 points of progress
// becomes one level and the remainder is carried. At MaxSkillLevel the
// progress is pinned to zero and further gains are ignored.
func (s *AgentSkill) GainXP(xp int) {
	if xp <= 0 {
		return
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Level >= MaxSkillLevel {
		s.Level = MaxSkillLevel
		s.Progress = 0
		return
	}

	s.Progress += xp
	s.Level += s.Progress / ProgressPerLevel
	s.Progress %= ProgressPerLevel

	if s.Level >= MaxSkillLevel {
		s.Level = MaxSkillLevel
		s.Progress = 0
	}
}

// AgentProfile is a configured persona driving the reasoning service
type AgentProfile struct {
	ID           AgentID       `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Role         string        `json:"role" yaml:"role"`
	Type         AgentType     `json:"type" yaml:"type"`
	Level        int           `json:"level" yaml:"level"`
	XP           int           `json:"xp" yaml:"xp"`
	NextLevelXP  int           `json:"nextLevelXp" yaml:"nextLevelXp"`
	Skills       []*AgentSkill `json:"skills" yaml:"skills"`
	TotalActions int           `json:"totalActions" yaml:"totalActions"`
}

// Validate checks the profile invariants
func (p *AgentProfile) Validate() error {
	if p.ID == "" {
		return goerr.New("agent id is empty")
	}
	if p.Name == "" {
		return goerr.New("agent name is empty", goerr.V("id", p.ID))
	}
	if err := p.Type.Validate(); err != nil {
		return goerr.Wrap(err, "invalid agent profile", goerr.V("id", p.ID))
	}
	return nil
}

// Normalize repairs counters that would break the level invariants
func (p *AgentProfile) Normalize() {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XP < 0 {
		p.XP = 0
	}
	if p.NextLevelXP <= 0 {
		p.NextLevelXP = defaultNextLevelXP
	}
	if p.TotalActions < 0 {
		p.TotalActions = 0
	}
	p.levelUp()

	p.Skills = slices.DeleteFunc(p.Skills, func(s *AgentSkill) bool { return s == nil })
	for _, s := range p.Skills {
		if s.Level < 1 {
			s.Level = 1
		}
		if s.Level > MaxSkillLevel {
			s.Level = MaxSkillLevel
		}
		if s.Progress < 0 || s.Progress >= ProgressPerLevel || s.Level == MaxSkillLevel {
			s.Progress = 0
		}
	}
}

// Skill returns the skill with the given name, or nil
func (p *AgentProfile) Skill(name string) *AgentSkill {
	for _, s := range p.Skills {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// GainSkillXP applies an XP delta to the named skill, creating it at level 1
// if the profile does not have it yet. The same delta counts toward the
// profile level.
func (p *AgentProfile) GainSkillXP(name string, xp int) *AgentSkill {
	skill := p.Skill(name)
	if skill == nil {
		skill = &AgentSkill{Name: name, Level: 1, Progress: 0}
		p.Skills = append(p.Skills, skill)
	}
	if xp <= 0 {
		return skill
	}

	skill.GainXP(xp)
	p.XP += xp
	p.levelUp()
	return skill
}

func (p *AgentProfile) levelUp() {
	if p.NextLevelXP <= 0 {
		p.NextLevelXP = defaultNextLevelXP
	}
	for p.XP >= p.NextLevelXP {
		p.XP -= p.NextLevelXP
		p.Level++
		p.NextLevelXP = p.NextLevelXP * 3 / 2
	}
}

// NewAgentProfile creates a level 1 profile with an empty skill set
func NewAgentProfile(name, role string, agentType AgentType) *AgentProfile {
	return &AgentProfile{
		ID:          NewAgentID(),
		Name:        name,
		Role:        role,
		Type:        agentType,
		Level:       1,
		NextLevelXP: defaultNextLevelXP,
	}
}
