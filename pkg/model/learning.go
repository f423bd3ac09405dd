package model

import "time"

// DefaultXPGain is the skill XP awarded when the model names a skill without an amount
const DefaultXPGain = 10

// SkillUpdate is a non-negative XP delta for a named skill
type SkillUpdate struct {
	SkillName string `json:"skillName"`
	XPGained  int    `json:"xpGained"`
}

// LearningResult is the transient output of a distillation pass. It is never persisted.
type LearningResult struct {
	Facts        []string      `json:"facts"`
	SkillUpdates []SkillUpdate `json:"skillUpdates"`
}

// IsEmpty returns true when the pass produced nothing to apply
func (r *LearningResult) IsEmpty() bool {
	return r == nil || (len(r.Facts) == 0 && len(r.SkillUpdates) == 0)
}

// ResearchResult is the output of one research job
type ResearchResult struct {
	Topic          string           `json:"topic"`
	Summary        string           `json:"summary"`
	Items          []*KnowledgeItem `json:"items"`
	ProcessedCount int              `json:"processedCount"`
	Sources        []Source         `json:"sources,omitempty"`
	CompletedAt    time.Time        `json:"completedAt"`
}
