package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
)

func TestGainSkillXPCreatesMissingSkill(t *testing.T) {
	profile := model.NewAgentProfile("Nexus", "Operator", model.AgentTypeUserSide)

	skill := profile.GainSkillXP("X", 150)

	gt.V(t, skill).NotNil()
	gt.A(t, profile.Skills).Length(1)
	gt.Equal(t, skill.Name, "X")
	gt.Equal(t, skill.Level, 2)
	gt.Equal(t, skill.Progress, 50)
}

func TestAgentSkillGainXP(t *testing.T) {
	testCases := []struct {
		name          string
		skill         model.AgentSkill
		xp            int
		expectLevel   int
		expectProgess int
	}{
		{"below threshold", model.AgentSkill{Level: 1, Progress: 20}, 30, 1, 50},
		{"exact threshold", model.AgentSkill{Level: 1, Progress: 90}, 10, 2, 0},
		{"multiple levels", model.AgentSkill{Level: 3, Progress: 50}, 260, 6, 10},
		{"caps at max level", model.AgentSkill{Level: 9, Progress: 80}, 500, 10, 0},
		{"ignored once capped", model.AgentSkill{Level: 10, Progress: 0}, 40, 10, 0},
		{"zero gain", model.AgentSkill{Level: 2, Progress: 30}, 0, 2, 30},
		{"negative gain", model.AgentSkill{Level: 2, Progress: 30}, -50, 2, 30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			skill := tc.skill
			skill.GainXP(tc.xp)
			gt.Equal(t, skill.Level, tc.expectLevel)
			gt.Equal(t, skill.Progress, tc.expectProgess)
		})
	}
}

func TestGainSkillXPLevelsProfile(t *testing.T) {
	profile := model.NewAgentProfile("Nexus", "Operator", model.AgentTypeUserSide)
	profile.XP = 990

	profile.GainSkillXP("Docker", 30)

	gt.Equal(t, profile.Level, 2)
	gt.Equal(t, profile.XP, 20)
	gt.Equal(t, profile.NextLevelXP, 1500)
	gt.True(t, profile.NextLevelXP > profile.XP)
}

func TestGainSkillXPExistingSkill(t *testing.T) {
	profile := model.NewAgentProfile("Nexus", "Operator", model.AgentTypeUserSide)
	profile.Skills = []*model.AgentSkill{{Name: "Linux", Level: 4, Progress: 95}}

	profile.GainSkillXP("Linux", 10)

	gt.A(t, profile.Skills).Length(1)
	gt.Equal(t, profile.Skills[0].Level, 5)
	gt.Equal(t, profile.Skills[0].Progress, 5)
}

func TestAgentProfileNormalize(t *testing.T) {
	profile := &model.AgentProfile{
		ID:          "a1",
		Name:        "Sentinel",
		Type:        model.AgentTypeWatchdog,
		Level:       0,
		XP:          2500,
		NextLevelXP: 0,
		Skills: []*model.AgentSkill{
			{Name: "Detect", Level: 12, Progress: 40},
			{Name: "Log", Level: 0, Progress: 250},
		},
	}

	profile.Normalize()

	gt.Equal(t, profile.Level, 3)
	gt.Equal(t, profile.XP, 0)
	gt.Equal(t, profile.NextLevelXP, 2250)
	gt.Equal(t, profile.Skills[0].Level, model.MaxSkillLevel)
	gt.Equal(t, profile.Skills[0].Progress, 0)
	gt.Equal(t, profile.Skills[1].Level, 1)
	gt.Equal(t, profile.Skills[1].Progress, 0)
}

func TestAgentTypeValidate(t *testing.T) {
	for _, typ := range []model.AgentType{
		model.AgentTypeUserSide,
		model.AgentTypeWatchdog,
		model.AgentTypeLearning,
		model.AgentTypeAdmin,
	} {
		gt.NoError(t, typ.Validate())
	}
	gt.Error(t, model.AgentType("ROOT").Validate())
}
