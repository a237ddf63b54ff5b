package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// [RenderDocumented] uses [FieldDoc] values to annotate config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "display.format")
// and section names to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	"colors": {
		Comment: "Color files that make up the merged color map.",
	},
	"colors.sources": {
		Comment: "Files to load, in order. A name defined in a later file overrides an earlier one.\nRelative entries are rooted at the data directory. Doublestar globs expand to\ntheir sorted matches.",
		Alternatives: []string{
			`sources = ["color.conf", "themes/**/*.conf"]`,
		},
	},
	"colors.exclude": {
		Comment: "Doublestar patterns removed from the expanded sources.",
		Alternatives: []string{
			`exclude = ["themes/**/draft-*.conf"]`,
		},
	},

	"display.format": {
		Comment: "How colors print. Options: \"hex\", \"rgba\", \"both\"\n  hex:  \"#ff00aa\"\n  rgba: \"rgba(255, 0, 170, 255)\"",
		Alternatives: []string{
			`format = "rgba"`,
			`format = "both"`,
		},
	},
	"display.swatch": {
		Comment: "Show a colored block next to each entry in list output.",
	},

	"watch.poll_interval_seconds": {
		Comment: "How often to stat color files (seconds). fsnotify is primary,\nthis is the fallback interval.",
	},

	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
	},
	"log.max_size_mb": {
		Comment: "Rotate hexmap.log once it reaches this many megabytes.",
	},
}

// ///////////////////////////////////////////////
// Rendering
// ///////////////////////////////////////////////

// RenderDocumented encodes cfg as TOML and injects the [ConfigDocs] comments
// above each section and key. Indentation from the encoder is stripped.
func RenderDocumented(cfg *Config) ([]byte, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# hexmap Configuration",
		"# ///////////////////////////////////////////////",
		"",
	}

	section := ""
	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			section = strings.Trim(trimmed, "[] ")
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(section)), "")
			out = appendComment(out, ConfigDocs[section].Comment)
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		path := key
		if section != "" {
			path = section + "." + key
		}
		doc := ConfigDocs[path]
		out = appendComment(out, doc.Comment)
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}

	result := strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
	return []byte(result), nil
}

// appendComment appends each line of comment prefixed with "# ".
func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// sectionName returns a display name for a TOML section header by taking
// the last dotted segment and capitalizing its first letter.
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
