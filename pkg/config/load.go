package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/minigraph/config.toml
//  2. ~/.config/minigraph/config.toml
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	paths := SearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	if md.IsDefined("graph", "preset") {
		applyPreset(cfg, md)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(xdgStateHome(home), "minigraph")

	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			LogFile:  filepath.Join(stateDir, "minigraph.log"),
		},
		Source: SourceConfig{
			Collector:  "k8s",
			Interval:   Duration{15 * time.Second},
			Namespaces: []string{"default"},
			GraphType:  "versionedApp",
		},
		Graph: GraphPreset("default"),
		Host: HostConfig{
			Transport:  "ipc",
			SocketPath: filepath.Join(xdgRuntimeDir(), "minigraph.sock"),
		},
		Server: ServerConfig{
			Listen:  "127.0.0.1:8089",
			Metrics: true,
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envBool("MINIGRAPH_MULTI_CLUSTER"); ok {
		cfg.Cluster.MultiCluster = v
	}
	if v, ok := envBool("MINIGRAPH_EMBEDDED"); ok {
		cfg.Host.Embedded = v
	}
	if v := os.Getenv("MINIGRAPH_HOST_SOCKET"); v != "" {
		cfg.Host.SocketPath = v
	}
	if v := os.Getenv("MINIGRAPH_KUBECONFIG"); v != "" {
		cfg.Source.Kubeconfig = v
	}
	if v := os.Getenv("MINIGRAPH_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
}

// envBool reads a boolean variable. Unset or unparsable values are ignored.
func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// SearchPaths returns the ordered list of config file paths Load tries.
func SearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "minigraph", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "minigraph", "config.toml"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// xdgStateHome returns XDG_STATE_HOME or ~/.local/state as fallback.
func xdgStateHome(home string) string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".local", "state")
}

// xdgRuntimeDir returns XDG_RUNTIME_DIR or the temp dir as fallback.
func xdgRuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return v
	}
	return os.TempDir()
}
