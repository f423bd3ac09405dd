package policy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
)

func TestResolve(t *testing.T) {
	t.Run("watchdog has no network access", func(t *testing.T) {
		b := policy.Resolve(model.AgentTypeWatchdog)
		gt.False(t, b.AllowNetworkSearch)
		gt.S(t, b.DirectiveText).Contains("WATCHDOG")
		gt.S(t, b.DirectiveText).Contains("quarantine")
		gt.True(t, b.Allows(policy.ActionQuarantine))
		gt.False(t, b.Allows(policy.ActionDeploy))
		gt.False(t, b.Allows(policy.ActionRemoteShell))
	})

	t.Run("user side may search and deploy", func(t *testing.T) {
		b := policy.Resolve(model.AgentTypeUserSide)
		gt.True(t, b.AllowNetworkSearch)
		gt.S(t, b.DirectiveText).Contains("host-key verification")
		gt.True(t, b.Allows(policy.ActionDeploy))
		gt.True(t, b.Allows(policy.ActionResearch))
		gt.False(t, b.Allows(policy.ActionQuarantine))
	})

	for _, agentType := range []model.AgentType{model.AgentTypeLearning, model.AgentTypeAdmin, "UNKNOWN"} {
		t.Run("restrictive default for "+string(agentType), func(t *testing.T) {
			b := policy.Resolve(agentType)
			gt.False(t, b.AllowNetworkSearch)
			gt.Equal(t, b.DirectiveText, "no extra restrictions defined")
			gt.A(t, b.AllowedActions).Length(1)
			gt.True(t, b.Allows(policy.ActionChat))
		})
	}
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	gate, err := policy.NewGate(ctx)
	gt.NoError(t, err)

	testCases := []struct {
		name      string
		agentType model.AgentType
		action    policy.Action
		allowed   bool
	}{
		{"user side deploy", model.AgentTypeUserSide, policy.ActionDeploy, true},
		{"user side research", model.AgentTypeUserSide, policy.ActionResearch, true},
		{"user side remote shell", model.AgentTypeUserSide, policy.ActionRemoteShell, true},
		{"watchdog deploy", model.AgentTypeWatchdog, policy.ActionDeploy, false},
		{"watchdog research", model.AgentTypeWatchdog, policy.ActionResearch, false},
		{"watchdog quarantine", model.AgentTypeWatchdog, policy.ActionQuarantine, true},
		{"admin chat", model.AgentTypeAdmin, policy.ActionChat, true},
		{"learning research", model.AgentTypeLearning, policy.ActionResearch, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, err := gate.Allowed(ctx, tc.action, policy.Resolve(tc.agentType))
			gt.NoError(t, err)
			gt.Equal(t, allowed, tc.allowed)

			err = gate.Check(ctx, tc.action, policy.Resolve(tc.agentType))
			if tc.allowed {
				gt.NoError(t, err)
			} else {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, policy.ErrActionDenied))
			}
		})
	}

	t.Run("research requires network search", func(t *testing.T) {
		bundle := policy.Bundle{
			AllowNetworkSearch: false,
			AllowedActions:     []policy.Action{policy.ActionResearch},
		}
		allowed, err := gate.Allowed(ctx, policy.ActionResearch, bundle)
		gt.NoError(t, err)
		gt.False(t, allowed)
	})
}

func TestGateWithPolicyDir(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	denyAll := `package nexusops.agent

default allow := false
`
	gt.NoError(t, os.WriteFile(filepath.Join(tmpDir, "deny.rego"), []byte(denyAll), 0644))

	gate, err := policy.NewGate(ctx, policy.WithPolicyDir(tmpDir))
	gt.NoError(t, err)

	allowed, err := gate.Allowed(ctx, policy.ActionChat, policy.Resolve(model.AgentTypeUserSide))
	gt.NoError(t, err)
	gt.False(t, allowed)
}

func TestGateWithEmptyPolicyDir(t *testing.T) {
	ctx := context.Background()
	gate, err := policy.NewGate(ctx, policy.WithPolicyDir(t.TempDir()))
	gt.NoError(t, err)

	allowed, err := gate.Allowed(ctx, policy.ActionChat, policy.Resolve(model.AgentTypeWatchdog))
	gt.NoError(t, err)
	gt.True(t, allowed)
}

func TestGateWithBrokenPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(tmpDir, "broken.rego"), []byte("package nexusops.agent\n\nallow if {"), 0644))

	_, err := policy.NewGate(context.Background(), policy.WithPolicyDir(tmpDir))
	gt.Error(t, err)
}
