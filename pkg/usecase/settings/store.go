package settings

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

// Store persists the remote connection settings
type Store struct {
	kv repository.KeyValueStore
}

func New(kv repository.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// Load returns the stored settings. An absent or malformed blob yields the
// defaults (port 22, everything else blank).
func (s *Store) Load(ctx context.Context) (*model.ConnectionSettings, error) {
	settings := &model.ConnectionSettings{Port: model.DefaultSSHPort}

	data, err := s.kv.Get(ctx, repository.KeySettings)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read settings", goerr.V("key", repository.KeySettings))
	}
	if len(data) == 0 {
		return settings, nil
	}

	if err := json.Unmarshal(data, settings); err != nil {
		logging.From(ctx).Warn("ignoring malformed settings blob", "error", err)
		return &model.ConnectionSettings{Port: model.DefaultSSHPort}, nil
	}
	if settings.Port == "" {
		settings.Port = model.DefaultSSHPort
	}
	return settings, nil
}

// Save validates and overwrites the stored settings
func (s *Store) Save(ctx context.Context, settings *model.ConnectionSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal settings")
	}
	if err := s.kv.Set(ctx, repository.KeySettings, data); err != nil {
		return goerr.Wrap(err, "failed to write settings", goerr.V("key", repository.KeySettings))
	}

	logging.From(ctx).Info("settings saved", "target", settings.Target())
	return nil
}
