package policy

import (
	"slices"
	"strings"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
)

// Action is a class of operation an agent may be asked to perform
type Action string

const (
	ActionChat        Action = "chat"
	ActionResearch    Action = "research"
	ActionDeploy      Action = "deploy"
	ActionRemoteShell Action = "remote_shell"
	ActionAlert       Action = "alert"
	ActionQuarantine  Action = "quarantine"
)

// Bundle is the capability and directive set derived from an agent type.
// It is the only source of capability differences between agents.
type Bundle struct {
	AllowNetworkSearch bool
	DirectiveText      string
	AllowedActions     []Action
}

// Allows reports whether the action is listed in the bundle
func (b Bundle) Allows(action Action) bool {
	return slices.Contains(b.AllowedActions, action)
}

const defaultDirective = "no extra restrictions defined"

var watchdogDirective = strings.Join([]string{
	"You are an internal WATCHDOG agent.",
	"You have NO internet access.",
	"You have NO SSH access and you never execute commands.",
	"Refuse any request to deploy software or open an SSH session and answer that you are an internal watchdog.",
	"Your only functions are to detect, log, alert and quarantine.",
}, "\n")

var userSideDirective = strings.Join([]string{
	"You are a USER_SIDE operations agent.",
	"You are authorized to manage only the external servers the user designates, through remote-shell automation.",
	"You are excluded from any internal or privileged infrastructure.",
	"You may generate deployment and automation scripts.",
	"Every script must state host-key verification as a prerequisite step before connecting.",
}, "\n")

// Resolve maps an agent type to its fixed bundle. LEARNING, ADMIN and
// unknown types get the most restrictive bundle.
func Resolve(agentType model.AgentType) Bundle {
	switch agentType {
	case model.AgentTypeWatchdog:
		return Bundle{
			AllowNetworkSearch: false,
			DirectiveText:      watchdogDirective,
			AllowedActions:     []Action{ActionChat, ActionAlert, ActionQuarantine},
		}

	case model.AgentTypeUserSide:
		return Bundle{
			AllowNetworkSearch: true,
			DirectiveText:      userSideDirective,
			AllowedActions:     []Action{ActionChat, ActionResearch, ActionDeploy, ActionRemoteShell},
		}

	default:
		return Bundle{
			AllowNetworkSearch: false,
			DirectiveText:      defaultDirective,
			AllowedActions:     []Action{ActionChat},
		}
	}
}
