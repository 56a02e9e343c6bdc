package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OriginAllowlist is an optional, operator-supplied YAML file naming the
// upstream origins the proxy is willing to fetch manifests and segments
// from, plus per-origin overrides of the pool defaults. It generalizes the
// teacher's per-provider APIConfig (internal/proxy/config_schema.go in the
// teacher repo) from "LLM API provider" to "HLS origin". When no file is
// configured, every origin is allowed and the process-wide pool defaults
// apply uniformly (see internal/pool).
type OriginAllowlist struct {
	// Origins lists the allowed scheme://host[:port] values. An empty list
	// means "allow any origin" (the default, matching spec.md's silence on
	// origin restriction).
	Origins []string `yaml:"origins"`
	// Overrides maps an origin to pool tuning overrides.
	Overrides map[string]OriginOverride `yaml:"overrides"`
}

// OriginOverride overrides the process-wide pool defaults for one origin.
type OriginOverride struct {
	MaxConnections   int           `yaml:"max_connections"`
	MaxPipelined     int           `yaml:"max_pipelined_per_connection"`
	KeepAliveIdle    time.Duration `yaml:"keepalive_idle"`
}

// LoadOriginAllowlist reads and validates an OriginAllowlist from path.
// An empty path is not an error: it returns an allowlist that permits any
// origin with no overrides.
func LoadOriginAllowlist(path string) (*OriginAllowlist, error) {
	if path == "" {
		return &OriginAllowlist{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read origin config: %w", err)
	}
	var cfg OriginAllowlist
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse origin config: %w", err)
	}
	return &cfg, nil
}

// Allowed reports whether origin is permitted. An empty allowlist permits
// every origin.
func (a *OriginAllowlist) Allowed(origin string) bool {
	if a == nil || len(a.Origins) == 0 {
		return true
	}
	for _, o := range a.Origins {
		if o == origin {
			return true
		}
	}
	return false
}
