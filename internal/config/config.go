// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Layered configuration: flags > WSIMPORT_* env > YAML file > defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides (WSIMPORT_LIMITS_MAX_ARCHIVE_SIZE, ...)
const EnvPrefix = "WSIMPORT"

// DefaultMaxUploadSize applies to both archives and context files
const DefaultMaxUploadSize = 200 * 1024 * 1024

// Config is the resolved runtime configuration
type Config struct {
	Registry         string
	DefaultContainer string
	Backend          string
	DockerBinary     string
	KillInContainer  bool
	StagingDir       string
	Shallow          bool

	MaxArchiveSize     int64
	MaxContextFileSize int64

	Timeouts Timeouts

	RedisURL string
	LockTTL  time.Duration

	ServeAddr string

	LogLevel  string
	LogFormat string
}

// Timeouts bound each class of container command
type Timeouts struct {
	Clone    time.Duration // git clone
	Branches time.Duration // git ls-remote
	Check    time.Duration // test -d, mkdir -p, rm -f
	Read     time.Duration // cat of small metadata files
	Probe    time.Duration // which
	Extract  time.Duration // unzip / python3 fallback
	Copy     time.Duration // host to container transfer
	Cleanup  time.Duration // rm -rf of partial results
	Strip    time.Duration // rm -rf <entry>/.git
	Delete   time.Duration // rm -rf of a whole entry
	List     time.Duration // find
	Du       time.Duration // du -sh
}

// DefaultTimeouts returns the stock budget per command class
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Clone:    600 * time.Second,
		Branches: 30 * time.Second,
		Check:    10 * time.Second,
		Read:     5 * time.Second,
		Probe:    5 * time.Second,
		Extract:  120 * time.Second,
		Copy:     120 * time.Second,
		Cleanup:  30 * time.Second,
		Strip:    60 * time.Second,
		Delete:   60 * time.Second,
		List:     15 * time.Second,
		Du:       15 * time.Second,
	}
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("registry", "")
	v.SetDefault("default_container", "")
	v.SetDefault("backend", "docker")
	v.SetDefault("docker_binary", "docker")
	v.SetDefault("kill_in_container", true)
	v.SetDefault("staging_dir", "")
	v.SetDefault("shallow", true)

	v.SetDefault("limits.max_archive_size", "200MiB")
	v.SetDefault("limits.max_context_file_size", "200MiB")

	t := DefaultTimeouts()
	v.SetDefault("timeouts.clone", t.Clone)
	v.SetDefault("timeouts.branches", t.Branches)
	v.SetDefault("timeouts.check", t.Check)
	v.SetDefault("timeouts.read", t.Read)
	v.SetDefault("timeouts.probe", t.Probe)
	v.SetDefault("timeouts.extract", t.Extract)
	v.SetDefault("timeouts.copy", t.Copy)
	v.SetDefault("timeouts.cleanup", t.Cleanup)
	v.SetDefault("timeouts.strip", t.Strip)
	v.SetDefault("timeouts.delete", t.Delete)
	v.SetDefault("timeouts.list", t.List)
	v.SetDefault("timeouts.du", t.Du)

	v.SetDefault("locks.redis_url", "")
	v.SetDefault("locks.ttl", 30*time.Second)

	v.SetDefault("serve.addr", "127.0.0.1:8088")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// New returns a viper instance with defaults, env binding and file search paths.
// An explicit file (from --config) replaces the search.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}

	v.SetConfigName(".wsimport")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "wsimport"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "wsimport"))
	}
	return v
}

// Read loads the config file if one is present. A missing file is not an error
// unless it was named explicitly.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && v.ConfigFileUsed() == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load resolves the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	maxArchive, err := parseSize(v, "limits.max_archive_size")
	if err != nil {
		return nil, err
	}
	maxContext, err := parseSize(v, "limits.max_context_file_size")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Registry:           v.GetString("registry"),
		DefaultContainer:   v.GetString("default_container"),
		Backend:            strings.ToLower(v.GetString("backend")),
		DockerBinary:       v.GetString("docker_binary"),
		KillInContainer:    v.GetBool("kill_in_container"),
		StagingDir:         v.GetString("staging_dir"),
		Shallow:            v.GetBool("shallow"),
		MaxArchiveSize:     maxArchive,
		MaxContextFileSize: maxContext,
		Timeouts: Timeouts{
			Clone:    v.GetDuration("timeouts.clone"),
			Branches: v.GetDuration("timeouts.branches"),
			Check:    v.GetDuration("timeouts.check"),
			Read:     v.GetDuration("timeouts.read"),
			Probe:    v.GetDuration("timeouts.probe"),
			Extract:  v.GetDuration("timeouts.extract"),
			Copy:     v.GetDuration("timeouts.copy"),
			Cleanup:  v.GetDuration("timeouts.cleanup"),
			Strip:    v.GetDuration("timeouts.strip"),
			Delete:   v.GetDuration("timeouts.delete"),
			List:     v.GetDuration("timeouts.list"),
			Du:       v.GetDuration("timeouts.du"),
		},
		RedisURL:  v.GetString("locks.redis_url"),
		LockTTL:   v.GetDuration("locks.ttl"),
		ServeAddr: v.GetString("serve.addr"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Backend {
	case "docker", "cli":
	default:
		return fmt.Errorf("invalid backend %q (want docker or cli)", c.Backend)
	}

	if c.MaxArchiveSize <= 0 {
		return errors.New("limits.max_archive_size must be positive")
	}
	if c.MaxContextFileSize <= 0 {
		return errors.New("limits.max_context_file_size must be positive")
	}

	for name, d := range map[string]time.Duration{
		"clone": c.Timeouts.Clone, "branches": c.Timeouts.Branches, "check": c.Timeouts.Check,
		"read": c.Timeouts.Read, "probe": c.Timeouts.Probe, "extract": c.Timeouts.Extract,
		"copy": c.Timeouts.Copy, "cleanup": c.Timeouts.Cleanup, "strip": c.Timeouts.Strip,
		"delete": c.Timeouts.Delete, "list": c.Timeouts.List, "du": c.Timeouts.Du,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %v", name, d)
		}
	}
	return nil
}

// parseSize accepts integers (bytes) and human strings such as "200MiB"
func parseSize(v *viper.Viper, key string) (int64, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return int64(n), nil
}
