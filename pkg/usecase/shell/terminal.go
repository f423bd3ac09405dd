package shell

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

// Prompt prefixes every echoed command line
const Prompt = "user@nexus:~$ "

var banner = []string{
	"NexusOps Shell v2.1.0",
	"Подключено к local-sandbox...",
	"Введите 'help' для списка доступных команд.",
	"",
}

// ActionChecker answers whether the active agent may perform an action
type ActionChecker interface {
	Check(ctx context.Context, action policy.Action) error
}

// Terminal is a simulated shell over a fixed command vocabulary. Nothing is
// executed.
type Terminal struct {
	checker ActionChecker

	mu      sync.Mutex
	history []string
}

// New creates a terminal showing the banner. checker may be nil.
func New(checker ActionChecker) *Terminal {
	return &Terminal{
		checker: checker,
		history: append([]string(nil), banner...),
	}
}

// History returns all lines shown so far
func (t *Terminal) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.history...)
}

// Execute runs one input line and returns the lines it produced, echo
// included. "clear" empties the history and produces nothing.
func (t *Terminal) Execute(ctx context.Context, input string) []string {
	cmd := strings.ToLower(strings.TrimSpace(input))
	if cmd == "" {
		return nil
	}

	if cmd == "clear" {
		t.mu.Lock()
		t.history = nil
		t.mu.Unlock()
		return nil
	}

	out := []string{Prompt + input}
	switch {
	case cmd == "help":
		out = append(out,
			"Доступные команды:",
			"  status    - Проверить статус системы",
			"  clear     - Очистить терминал",
			"  connect   - Симуляция SSH подключения",
			"  whoami    - Показать текущего пользователя",
		)
	case cmd == "status":
		out = append(out, "Система РАБОТАЕТ НОРМАЛЬНО.", "Все системы в порядке.")
	case cmd == "whoami":
		out = append(out, "admin")
	case strings.HasPrefix(cmd, "connect"):
		out = append(out, t.connect(ctx)...)
	default:
		out = append(out, "команда не найдена: "+cmd)
	}

	t.mu.Lock()
	t.history = append(t.history, out...)
	t.mu.Unlock()
	return out
}

func (t *Terminal) connect(ctx context.Context) []string {
	if t.checker != nil {
		if err := t.checker.Check(ctx, policy.ActionRemoteShell); err != nil {
			if !errors.Is(err, policy.ErrActionDenied) {
				logging.From(ctx).Warn("failed to evaluate remote shell policy", "error", err)
			}
			return []string{
				"Попытка подключения...",
				"Ошибка: текущему агенту запрещен удаленный доступ (remote_shell).",
			}
		}
	}

	return []string{
		"Попытка подключения...",
		"Ошибка: Невозможно выполнить реальный SSH из песочницы.",
		"Используйте ИИ-ассистента для генерации скрипта деплоя.",
	}
}
