/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/config"
	"github.com/sony-level/wsimport/internal/exec"
	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/locks"
	"github.com/sony-level/wsimport/internal/logging"
	"github.com/sony-level/wsimport/internal/metrics"
	"github.com/sony-level/wsimport/internal/workspace"
)

// app holds everything a command needs to talk to a container
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *importer.Engine
	metrics metrics.Metrics
	closers []io.Closer
}

// flagKeys binds persistent flags onto configuration keys
var flagKeys = map[string]string{
	"container":  "default_container",
	"registry":   "registry",
	"backend":    "backend",
	"log-format": "log.format",
}

// loadConfig resolves flags > env > file > defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New(cfgFile)
	for flag, key := range flagKeys {
		if f := cmd.Root().PersistentFlags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}
	if err := config.Read(v); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// newApp wires config, logging, the exec bridge, the slot registry
// and the engine. prom is non-nil only for serve.
func newApp(cmd *cobra.Command, prom *metrics.Prom) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Verbose: verbose})
	if err != nil {
		return nil, err
	}

	rt := &app{cfg: cfg, logger: logger, metrics: metrics.Noop{}}
	var observer exec.Observer
	if prom != nil {
		rt.metrics = prom
		observer = prom
	}

	bridge, closer, err := exec.New(&exec.BridgeConfig{
		Backend:         cfg.Backend,
		DockerBinary:    cfg.DockerBinary,
		KillInContainer: cfg.KillInContainer,
	}, logger.Named("exec"), observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec bridge: %w", err)
	}
	rt.closers = append(rt.closers, closer)

	resolver, err := newResolver(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var slots locks.Registry = locks.NewLocal()
	if cfg.RedisURL != "" {
		r, err := locks.NewRedis(cfg.RedisURL, cfg.LockTTL, logger.Named("locks"))
		if err != nil {
			rt.Close()
			return nil, err
		}
		slots = r
		rt.closers = append(rt.closers, r)
	}

	rt.engine, err = importer.New(&importer.Config{
		Bridge:             bridge,
		Resolver:           resolver,
		Slots:              slots,
		Logger:             logger.Named("importer"),
		Metrics:            rt.metrics,
		MaxArchiveSize:     cfg.MaxArchiveSize,
		MaxContextFileSize: cfg.MaxContextFileSize,
		Timeouts:           cfg.Timeouts,
		StagingDir:         cfg.StagingDir,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// newResolver picks --root (single workspace) over the registry file
func newResolver(cfg *config.Config) (workspace.Resolver, error) {
	if workspaceRoot != "" {
		if cfg.DefaultContainer == "" {
			return nil, errors.New("--root needs a container: pass --container or set default_container")
		}
		return workspace.Static{Ref: workspace.Ref{Container: cfg.DefaultContainer, Root: workspaceRoot}}, nil
	}
	if cfg.Registry == "" {
		return nil, errors.New("no workspace selected: pass --root or configure a registry")
	}
	return workspace.LoadFileStore(cfg.Registry, cfg.DefaultContainer)
}

// Close releases backend clients and flushes the logger
func (rt *app) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

// withEngine runs fn with a fully wired runtime
func withEngine(cmd *cobra.Command, fn func(rt *app) error) error {
	rt, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
