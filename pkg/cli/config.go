package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/adapter"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/assistant"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/chat"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/knowledge"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/profile"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/settings"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Store backends
const (
	storeSQLite    = "sqlite"
	storeFirestore = "firestore"
	storeGCS       = "gcs"
	storeMemory    = "memory"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	store       string
	sqlitePath  string
	project     string
	database    string
	bucket      string
	prefix      string
	credentials string

	// Adapters
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Agent
	agent      string
	agentsFile string
	policyDir  string
	language   string
}

// globalFlags returns logging and persistence flags
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("NEXUSOPS_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("NEXUSOPS_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "State backend (sqlite, firestore, gcs, memory)",
			Value:       storeSQLite,
			Sources:     cli.EnvVars("NEXUSOPS_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Value:       "nexusops.db",
			Sources:     cli.EnvVars("NEXUSOPS_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the gcs store",
			Sources:     cli.EnvVars("NEXUSOPS_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object prefix in the Cloud Storage bucket",
			Sources:     cli.EnvVars("NEXUSOPS_BUCKET_PREFIX"),
			Destination: &cfg.prefix,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Service account key file for Google Cloud clients",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentials,
		},
	}
}

// llmFlags returns flags for Gemini configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key. Vertex AI is used when empty.",
			Sources:     cli.EnvVars("GEMINI_API_KEY", "API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       adapter.DefaultGenerativeModel,
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// agentFlags returns flags selecting and constraining the active agent
func agentFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "ID or name of the active agent",
			Value:       string(profile.OperatorID),
			Sources:     cli.EnvVars("NEXUSOPS_AGENT"),
			Destination: &cfg.agent,
		},
		&cli.StringFlag{
			Name:        "agents-file",
			Usage:       "YAML file with the agents to seed an empty store with",
			Sources:     cli.EnvVars("NEXUSOPS_AGENTS_FILE"),
			Destination: &cfg.agentsFile,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies replacing the built-in one",
			Sources:     cli.EnvVars("NEXUSOPS_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.StringFlag{
			Name:        "language",
			Usage:       "Language of model replies",
			Value:       chat.DefaultLanguage,
			Sources:     cli.EnvVars("NEXUSOPS_LANGUAGE"),
			Destination: &cfg.language,
		},
	}
}

// withLogger attaches the configured logger to ctx and makes it the default
func (cfg *config) withLogger(ctx context.Context, w io.Writer) (context.Context, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return ctx, err
	}
	if w == nil {
		w = os.Stderr
	}
	logger := logging.New(cfg.logLevel, w, logging.WithFormat(format))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if cfg.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.credentials))
	}
	return opts
}

// newStore opens the configured key/value backend. The returned function
// releases it.
func (cfg *config) newStore(ctx context.Context) (repository.KeyValueStore, func(), error) {
	nop := func() {}

	switch cfg.store {
	case storeMemory:
		return repository.NewMemory(), nop, nil

	case "", storeSQLite:
		db, err := repository.NewSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to open sqlite store")
		}
		return db, closer(ctx, db), nil

	case storeFirestore:
		if cfg.project == "" {
			return nil, nop, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nop, goerr.New("database is required")
		}
		fs, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.clientOptions())
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to create firestore store")
		}
		return fs, closer(ctx, fs), nil

	case storeGCS:
		var opts []adapter.StorageOption
		if cfg.prefix != "" {
			opts = append(opts, adapter.WithPrefix(cfg.prefix))
		}
		storage, err := adapter.NewStorage(ctx, cfg.bucket, cfg.clientOptions(), opts...)
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to create storage")
		}
		return repository.NewCloudStorage(storage), nop, nil

	default:
		return nil, nop, goerr.New("unknown store", goerr.V("store", cfg.store))
	}
}

func closer(ctx context.Context, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.From(ctx).Warn("failed to close store", "error", err)
		}
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	client, err := adapter.NewGemini(ctx, adapter.GeminiAuth{
		APIKey:   cfg.geminiAPIKey,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
	}, adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return client, nil
}

// stores holds the loaded persistent state shared by the commands
type stores struct {
	knowledge *knowledge.Store
	profiles  *profile.Store
	settings  *settings.Store
	close     func()
}

// openStores opens the backend and loads knowledge and agents from it
func (cfg *config) openStores(ctx context.Context) (*stores, error) {
	kv, closeFn, err := cfg.newStore(ctx)
	if err != nil {
		return nil, err
	}

	var profileOpts []profile.Option
	if cfg.agentsFile != "" {
		seed, err := profile.LoadSeedFile(cfg.agentsFile)
		if err != nil {
			closeFn()
			return nil, goerr.Wrap(err, "failed to load agents file")
		}
		profileOpts = append(profileOpts, profile.WithSeed(seed))
	}

	s := &stores{
		knowledge: knowledge.New(kv),
		profiles:  profile.New(kv, profileOpts...),
		settings:  settings.New(kv),
		close:     closeFn,
	}
	if err := s.knowledge.Load(ctx); err != nil {
		closeFn()
		return nil, goerr.Wrap(err, "failed to load knowledge")
	}
	if err := s.profiles.Load(ctx); err != nil {
		closeFn()
		return nil, goerr.Wrap(err, "failed to load agents")
	}

	logging.From(ctx).Debug("state loaded",
		slog.String("store", cfg.store),
		slog.Int("knowledge", len(s.knowledge.List())),
		slog.Int("agents", len(s.profiles.List())),
	)
	return s, nil
}

// newGate compiles the action policy
func (cfg *config) newGate(ctx context.Context) (*policy.Gate, error) {
	var opts []policy.GateOption
	if cfg.policyDir != "" {
		opts = append(opts, policy.WithPolicyDir(cfg.policyDir))
	}
	gate, err := policy.NewGate(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create policy gate")
	}
	return gate, nil
}

// newAssistant wires the Gemini client, policy and stores into a session
func (cfg *config) newAssistant(ctx context.Context, s *stores, autoLearn bool) (*assistant.Assistant, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}
	gate, err := cfg.newGate(ctx)
	if err != nil {
		return nil, err
	}

	a, err := assistant.New(assistant.NewInput{
		Reasoning: reasoning.New(gemini),
		Gate:      gate,
		Knowledge: s.knowledge,
		Profiles:  s.profiles,
		Settings:  s.settings,
		AgentRef:  cfg.agent,
		Language:  cfg.language,
		AutoLearn: autoLearn,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create assistant")
	}
	return a, nil
}

// flagSet concatenates flag groups
func flagSet(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}
