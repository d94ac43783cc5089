package config

import (
	"fmt"
	"strconv"

	"github.com/dshills/keystorm/internal/engine/buffer"
	"github.com/dshills/keystorm/internal/engine/piecetree"
)

// Default engine settings, used when no TOML file or environment
// variable overrides them.
const (
	DefaultBufferThreshold int64 = 64 * 1024 // 64 KiB, matches piecetree's own default
	DefaultTabWidth        int   = 4
)

// EngineConfig holds the piece-tree engine's configurable surface: the
// change-buffer swap threshold, the tab width used for column rendering,
// and the line-ending policy applied to new buffers.
type EngineConfig struct {
	BufferThreshold int64
	TabWidth        int
	LineEnding      buffer.LineEnding
}

// DefaultEngineConfig returns the engine configuration used when nothing
// overrides it.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BufferThreshold: DefaultBufferThreshold,
		TabWidth:        DefaultTabWidth,
		LineEnding:      buffer.LineEndingLF,
	}
}

// Load reads engine configuration from a TOML file at path (if it exists)
// overlaid with KEYSTORM_-prefixed environment variables, and returns the
// resolved EngineConfig. A missing file is not an error; missing settings
// fall back to DefaultEngineConfig.
func Load(fsys FileSystem, path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	var fileValues map[string]any
	if path != "" {
		var err error
		fileValues, err = NewTOMLLoaderWithFS(fsys, path).Load()
		if err != nil {
			return cfg, fmt.Errorf("loading engine config: %w", err)
		}
	}

	envValues, err := NewEnvLoader("KEYSTORM_").Load()
	if err != nil {
		return cfg, fmt.Errorf("loading engine config from environment: %w", err)
	}

	merged := DeepMerge(Clone(fileValues), envValues)

	section, _ := merged["engine"].(map[string]any)
	applyEngineSection(&cfg, section)

	return cfg, nil
}

// applyEngineSection overlays the "engine" TOML/env section onto cfg,
// leaving defaults in place for anything absent or malformed.
func applyEngineSection(cfg *EngineConfig, section map[string]any) {
	if section == nil {
		return
	}

	if v, ok := section["bufferThreshold"]; ok {
		if n, ok := toInt64(v); ok && n > 0 {
			cfg.BufferThreshold = n
		}
	}

	if v, ok := section["tabWidth"]; ok {
		if n, ok := toInt64(v); ok && n > 0 {
			cfg.TabWidth = int(n)
		}
	}

	if v, ok := section["lineEnding"]; ok {
		if s, ok := v.(string); ok {
			if le, ok := parseLineEnding(s); ok {
				cfg.LineEnding = le
			}
		}
	}
}

// toInt64 accepts the numeric shapes TOML and the environment loader can
// produce (int64 from TOML/env parsing, float64 from JSON-style values).
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func parseLineEnding(s string) (buffer.LineEnding, bool) {
	switch s {
	case "lf", "LF", "\n":
		return buffer.LineEndingLF, true
	case "crlf", "CRLF", "\r\n":
		return buffer.LineEndingCRLF, true
	case "cr", "CR", "\r":
		return buffer.LineEndingCR, true
	default:
		return 0, false
	}
}

// PieceTreeOptions translates the configuration into piecetree.Option
// values suitable for piecetree.New.
func (c EngineConfig) PieceTreeOptions() []piecetree.Option {
	return []piecetree.Option{
		piecetree.WithBufferThreshold(c.BufferThreshold),
	}
}

// BufferOptions translates the configuration into buffer.Option values
// suitable for buffer.NewBuffer and its siblings.
func (c EngineConfig) BufferOptions() []buffer.Option {
	return []buffer.Option{
		buffer.WithTabWidth(c.TabWidth),
		buffer.WithLineEnding(c.LineEnding),
	}
}
