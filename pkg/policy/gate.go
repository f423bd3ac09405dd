// Package policy resolves the capability bundle of an agent and decides,
// with a Rego policy, whether an action class is permitted under it.
package policy

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

const allowQuery = "data.nexusops.agent.allow"

//go:embed rego/agent.rego
var defaultPolicy string

var (
	ErrActionDenied = goerr.New("action is not permitted for this agent")
)

// regoPrintHook forwards Rego print() statements to the context logger
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego", "message", message)
	return nil
}

// Gate evaluates the action policy
type Gate struct {
	query *rego.PreparedEvalQuery
}

type GateOption func(*gateConfig)

type gateConfig struct {
	policyDir string
}

// WithPolicyDir replaces the embedded policy with the .rego files of dir.
// An empty dir or a dir without .rego files keeps the embedded policy.
func WithPolicyDir(dir string) GateOption {
	return func(c *gateConfig) {
		c.policyDir = dir
	}
}

// NewGate prepares the policy query
func NewGate(ctx context.Context, opts ...GateOption) (*Gate, error) {
	var cfg gateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	modules, err := loadModules(cfg.policyDir)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		modules = []func(*rego.Rego){rego.Module("agent.rego", defaultPolicy)}
	}

	options := make([]func(*rego.Rego), 0, len(modules)+1)
	options = append(options, rego.Query(allowQuery))
	options = append(options, modules...)

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query", goerr.V("query", allowQuery))
	}

	return &Gate{query: &prepared}, nil
}

func loadModules(policyDir string) ([]func(*rego.Rego), error) {
	if policyDir == "" {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", policyDir))
	}

	modules := make([]func(*rego.Rego), 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		modules = append(modules, rego.Module(file, string(data)))
	}
	return modules, nil
}

// Allowed evaluates the policy for an action under a bundle
func (g *Gate) Allowed(ctx context.Context, action Action, bundle Bundle) (bool, error) {
	actions := make([]any, 0, len(bundle.AllowedActions))
	for _, a := range bundle.AllowedActions {
		actions = append(actions, string(a))
	}

	input := map[string]any{
		"action": string(action),
		"bundle": map[string]any{
			"allow_network_search": bundle.AllowNetworkSearch,
			"allowed_actions":      actions,
		},
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate policy", goerr.V("action", action))
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("policy result is not a boolean",
			goerr.V("action", action),
			goerr.V("value", rs[0].Expressions[0].Value))
	}
	return allowed, nil
}

// Check returns ErrActionDenied unless the policy allows the action
func (g *Gate) Check(ctx context.Context, action Action, bundle Bundle) error {
	allowed, err := g.Allowed(ctx, action, bundle)
	if err != nil {
		return err
	}
	if !allowed {
		return goerr.Wrap(ErrActionDenied, "denied by policy", goerr.V("action", action))
	}
	return nil
}
