package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/proxoffensive/prox-mesh/internal/config"
	"github.com/proxoffensive/prox-mesh/internal/discovery"
	"github.com/spf13/cobra"
)

// session is the per-invocation state shared by every subcommand.
type session struct {
	env    *Environment
	logger *slog.Logger
	cfg    *config.Config
}

func (e *Environment) lookupEnv(key string) (string, bool) {
	if e.LookupEnv == nil {
		return "", false
	}
	return e.LookupEnv(key)
}

func newSession(cmd *cobra.Command, env *Environment) (*session, error) {
	levelFlag, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	if levelFlag == "" {
		levelFlag, _ = env.lookupEnv(EnvLogLevel)
	}
	level, _, err := parseLogLevel(levelFlag)
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("invalid log level: %w", err)}
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	cfg, err := loadConfig(cmd, env, logger)
	if err != nil {
		return nil, err
	}

	return &session{env: env, logger: logger, cfg: cfg}, nil
}

// loadConfig discovers the root and layers defaults, the config file and
// environment overrides, in that order.
func loadConfig(cmd *cobra.Command, env *Environment, logger *slog.Logger) (*config.Config, error) {
	rootFlag, err := cmd.Flags().GetString("root")
	if err != nil {
		return nil, err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	dcfg := discovery.DefaultConfig(rootFlag)
	dcfg.EnvValue, _ = env.lookupEnv(discovery.EnvRoot)
	if env.Executable != "" {
		dcfg.Executable = env.Executable
	}
	if env.WorkingDir != "" {
		dcfg.WorkingDir = env.WorkingDir
	}

	found, err := discovery.Discover(dcfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("repository root", "path", found.Root, "method", found.Method)

	cfg := config.GenerateDefault()
	cfg.Root = found.Root

	file, path, err := loadConfigFile(configPath, found.Root)
	if err != nil {
		return nil, err
	}
	if file != nil {
		logger.Debug("loaded configuration", "path", path)
		if err := cfg.Merge(file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.ApplyEnv(env.lookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile loads an explicit config path (which must exist) or the
// optional prox-mesh.json at the root.
func loadConfigFile(explicit, root string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.LoadFromFile(explicit)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", explicit, err)
		}
		return cfg, explicit, nil
	}

	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, "", nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
