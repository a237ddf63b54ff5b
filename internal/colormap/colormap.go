// Package colormap provides a name-keyed table of colors loaded from a
// line-oriented configuration file.
//
// Each non-blank line holds a name and a hex color separated by whitespace:
//
//	background  #000000
//	accent      0xff00aa
//
// Lines that do not split into exactly two tokens, or whose color fails
// [color.ParseHex], are skipped. Only an unreadable file fails a load.
package colormap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"tools.zach/dev/hexmap/internal/color"
)

// ///////////////////////////////////////////////
// ColorMap
// ///////////////////////////////////////////////

// ColorMap maps case-sensitive names to colors. It is not safe for
// concurrent mutation; treat a loaded map as read-only.
type ColorMap struct {
	colors map[string]color.Color
}

// New returns an empty ColorMap.
func New() *ColorMap {
	return &ColorMap{colors: make(map[string]color.Color)}
}

// Insert sets name to c, replacing any previous entry.
func (m *ColorMap) Insert(name string, c color.Color) {
	m.colors[name] = c
}

// Get returns the color stored under name. The boolean is false when no
// entry exists; the returned color is then the zero value.
func (m *ColorMap) Get(name string) (color.Color, bool) {
	c, ok := m.colors[name]
	return c, ok
}

// Len returns the number of entries.
func (m *ColorMap) Len() int {
	return len(m.colors)
}

// Names returns all entry names in lexical order.
func (m *ColorMap) Names() []string {
	names := make([]string, 0, len(m.colors))
	for name := range m.colors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge inserts every entry of other into m. Entries in other win.
func (m *ColorMap) Merge(other *ColorMap) {
	for name, c := range other.colors {
		m.colors[name] = c
	}
}

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// SourceNotFoundError reports a configuration file that could not be read:
// missing, unreadable, or not valid UTF-8.
type SourceNotFoundError struct {
	// Path is the file passed to [Load].
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("color source %s not found: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// errInvalidUTF8 is the cause recorded for files that are not valid UTF-8.
var errInvalidUTF8 = errors.New("invalid UTF-8 encoding")

// ///////////////////////////////////////////////
// Skipped Lines
// ///////////////////////////////////////////////

// SkippedLine describes a configuration line that produced no entry.
type SkippedLine struct {
	// Line is the 1-based line number.
	Line int
	// Text is the raw line content.
	Text string
	// Reason explains why the line was dropped.
	Reason string
}

func (s SkippedLine) String() string {
	return fmt.Sprintf("line %d: %s: %q", s.Line, s.Reason, s.Text)
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// Load reads filename and returns the colors it defines. Malformed lines
// are skipped and logged at debug level. A file that cannot be read yields
// a [*SourceNotFoundError] and a nil map.
func Load(filename string) (*ColorMap, error) {
	m, skipped, err := LoadDetailed(filename)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		slog.Debug("skipping color line", "path", filename, "line", s.Line, "reason", s.Reason)
	}
	return m, nil
}

// LoadDetailed is like [Load] but also returns every skipped line.
func LoadDetailed(filename string) (*ColorMap, []SkippedLine, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, &SourceNotFoundError{Path: filename, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, nil, &SourceNotFoundError{Path: filename, Err: errInvalidUTF8}
	}
	m, skipped := Parse(string(data))
	return m, skipped, nil
}

// LoadFiles loads each file in order and merges the results, so a name
// defined in a later file overrides an earlier one. It stops at the first
// file that cannot be read.
func LoadFiles(filenames ...string) (*ColorMap, error) {
	merged := New()
	for _, f := range filenames {
		m, err := Load(f)
		if err != nil {
			return nil, err
		}
		merged.Merge(m)
	}
	return merged, nil
}

// Parse builds a ColorMap from configuration text already in memory.
// Blank lines are ignored and are not reported as skipped.
func Parse(text string) (*ColorMap, []SkippedLine) {
	m := New()
	var skipped []SkippedLine
	for i, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		switch len(fields) {
		case 0:
			continue
		case 2:
		default:
			skipped = append(skipped, SkippedLine{
				Line:   i + 1,
				Text:   strings.TrimRight(line, "\r"),
				Reason: fmt.Sprintf("expected name and color, got %d fields", len(fields)),
			})
			continue
		}

		c, err := color.ParseHex(fields[1])
		if err != nil {
			skipped = append(skipped, SkippedLine{
				Line:   i + 1,
				Text:   strings.TrimRight(line, "\r"),
				Reason: err.Error(),
			})
			continue
		}
		m.Insert(fields[0], c)
	}
	return m, skipped
}
