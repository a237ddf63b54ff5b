// Package config provides configuration loading and defaults for the hexmap
// command.
//
// Configuration is loaded from a TOML file in the user's data directory. It
// names the color files to load, how entries are displayed, the watch
// polling fallback, and logging settings. Missing files yield defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/hexmap/internal/atomicfile"
	"tools.zach/dev/hexmap/internal/color"
	"tools.zach/dev/hexmap/internal/migrate"
	"tools.zach/dev/hexmap/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Colors selects the color files to load.
	Colors ColorsConfig `toml:"colors"`
	// Display holds output formatting settings.
	Display DisplayConfig `toml:"display"`
	// Watch holds settings for the watch command.
	Watch WatchConfig `toml:"watch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ColorsConfig lists the color files that make up the merged color map.
type ColorsConfig struct {
	// Sources are file paths or doublestar patterns, relative to the data
	// directory unless absolute. Later sources override earlier ones.
	Sources []string `toml:"sources"`
	// Exclude holds doublestar patterns removed from the expanded sources.
	Exclude []string `toml:"exclude"`
}

// DisplayConfig holds output formatting settings.
type DisplayConfig struct {
	// Format controls how colors print: "hex", "rgba", or "both".
	Format string `toml:"format"`
	// Swatch renders a colored block next to each listed entry.
	Swatch bool `toml:"swatch"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	// PollIntervalSeconds is the stat interval used when fsnotify is unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Colors: ColorsConfig{
			Sources: []string{paths.ColorsFile},
			Exclude: []string{},
		},
		Display: DisplayConfig{
			Format: "hex",
			Swatch: true,
		},
		Watch: WatchConfig{
			PollIntervalSeconds: 2,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Migrations
// ///////////////////////////////////////////////

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "colors.file -> colors.sources",
		Upgrade:     upgradeSourcesList,
	})
}

// upgradeSourcesList rewrites the v1 single-file key into the v2 sources
// list. An existing sources list is kept and the old file is prepended.
func upgradeSourcesList(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	if colors, ok := doc["colors"].(map[string]any); ok {
		if file, ok := colors["file"].(string); ok {
			sources := []any{file}
			if existing, ok := colors["sources"].([]any); ok {
				sources = append(sources, existing...)
			}
			colors["sources"] = sources
			delete(colors, "file")
		}
	}
	doc["version"] = int64(2)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig. Older schemas are
// migrated, backed up to config.toml.bak, and re-saved.
func Load(dataDir string) (*Config, error) {
	dd := paths.DataDir{Root: dataDir}
	path := dd.Config()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := false
	if version != migrate.Config.CurrentVersion {
		if migrate.Config.NeedsMigration(version) {
			if backupErr := atomicfile.Write(dd.ConfigBackup(), data, 0o644); backupErr != nil {
				slog.Warn("failed to write config backup", "error", backupErr)
			}
			migrated = true
		}
		data, err = migrate.Config.Upgrade(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if len(c.Colors.Sources) == 0 {
		return fmt.Errorf("colors.sources must list at least one file")
	}
	for _, s := range c.Colors.Sources {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("colors.sources contains an empty entry")
		}
		if isPattern(s) && !doublestar.ValidatePattern(filepath.ToSlash(s)) {
			return fmt.Errorf("invalid colors.sources pattern %q", s)
		}
	}
	for _, p := range c.Colors.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid colors.exclude pattern %q", p)
		}
	}

	switch c.Display.Format {
	case "hex", "rgba", "both":
	default:
		return fmt.Errorf("invalid display.format %q: must be hex, rgba, or both", c.Display.Format)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}

	return nil
}

// ///////////////////////////////////////////////
// Source Resolution
// ///////////////////////////////////////////////

// isPattern reports whether s contains doublestar metacharacters.
func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// ResolveSources expands the configured sources into an ordered list of
// file paths. Relative entries are rooted at dataDir. Patterns expand to
// their sorted matches; literal paths are kept even if missing so that
// loading reports them. Excluded and duplicate paths are dropped, keeping
// the first occurrence.
func (c *Config) ResolveSources(dataDir string) ([]string, error) {
	dd := paths.DataDir{Root: dataDir}
	seen := make(map[string]bool)
	var out []string

	for _, src := range c.Colors.Sources {
		full := dd.Resolve(src)
		candidates := []string{full}
		if isPattern(src) {
			matches, err := doublestar.FilepathGlob(full, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expand colors.sources %q: %w", src, err)
			}
			if len(matches) == 0 {
				slog.Warn("color source pattern matched no files", "pattern", src)
			}
			sort.Strings(matches)
			candidates = matches
		}

		for _, p := range candidates {
			p = filepath.Clean(p)
			if seen[p] || c.isExcluded(dataDir, p) {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// SourcePatterns returns the glob entries of colors.sources rooted at
// dataDir. Watchers use them to notice files created after resolution.
func (c *Config) SourcePatterns(dataDir string) []string {
	dd := paths.DataDir{Root: dataDir}
	var out []string
	for _, src := range c.Colors.Sources {
		if isPattern(src) {
			out = append(out, dd.Resolve(src))
		}
	}
	return out
}

// isExcluded reports whether path matches any exclude pattern, tested
// against both the data-dir-relative and the full slash-separated path.
func (c *Config) isExcluded(dataDir, path string) bool {
	names := []string{filepath.ToSlash(path)}
	if rel, err := filepath.Rel(dataDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		names = append(names, filepath.ToSlash(rel))
	}
	for _, pattern := range c.Colors.Exclude {
		for _, name := range names {
			matched, err := doublestar.Match(pattern, name)
			if err != nil {
				slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
				break
			}
			if matched {
				slog.Debug("excluding color source", "path", path, "pattern", pattern)
				return true
			}
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Formatting Helpers
// ///////////////////////////////////////////////

// FormatColor renders c according to display.format.
func (c *Config) FormatColor(col color.Color) string {
	return FormatColor(col, c.Display.Format)
}

// FormatColor renders col as "#rrggbb" ("hex"), "rgba(r, g, b, a)"
// ("rgba"), or both separated by a space. Unknown formats fall back to hex.
func FormatColor(col color.Color, format string) string {
	rgba := fmt.Sprintf("rgba(%d, %d, %d, %d)", col.R(), col.G(), col.B(), col.A())
	switch format {
	case "rgba":
		return rgba
	case "both":
		return col.String() + " " + rgba
	default: // "hex"
		return col.String()
	}
}
