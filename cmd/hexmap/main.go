// Package main implements the hexmap command, which parses hex color strings
// and looks up named colors from flat color files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	hexmap "tools.zach/dev/hexmap"
	"tools.zach/dev/hexmap/internal/atomicfile"
	"tools.zach/dev/hexmap/internal/color"
	"tools.zach/dev/hexmap/internal/colormap"
	"tools.zach/dev/hexmap/internal/config"
	"tools.zach/dev/hexmap/internal/logger"
	"tools.zach/dev/hexmap/internal/paths"
	"tools.zach/dev/hexmap/internal/watch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//
//	-X main.version=$(VERSION)
//
// When ldflags are not set, resolveVersion falls back to the VCS info that
// Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision is used to
// construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Exit Codes
// ///////////////////////////////////////////////

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usageText = `usage: hexmap [flags] <command> [args]

commands:
  get NAME...    print the colors stored under NAME
  list           print every color, sorted by name
  parse HEX...   parse #RRGGBB or 0xRRGGBB strings
  check          report color file lines that were skipped
  watch          reload colors whenever a color file changes
  version        print the build version

flags:
`

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for hexmap data,
// typically ~/.hexmap. Falls back to ./.hexmap if the home directory cannot
// be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// seedDefaults writes the embedded config and color file into the data
// directory when they are missing. Existing files are never touched.
func seedDefaults(dp paths.DataDir, stderr io.Writer) {
	seeds := []struct {
		path string
		data []byte
	}{
		{dp.Config(), hexmap.DefaultConfigTOML},
		{dp.Colors(), hexmap.DefaultColorsConf},
	}
	for _, s := range seeds {
		if _, err := atomicfile.WriteIfAbsent(s.path, s.data, 0o644); err != nil {
			fmt.Fprintf(stderr, "warning: failed to write default %s: %v\n", filepath.Base(s.path), err)
		}
	}
}

// ///////////////////////////////////////////////
// Environment
// ///////////////////////////////////////////////

// env carries everything a command needs after startup.
type env struct {
	cfg *config.Config
	// resolve returns the current color files. Globs are re-expanded on
	// every call so files created after startup are picked up.
	resolve func() ([]string, error)
	// patterns are the glob sources, rooted at the data directory.
	patterns []string
	stdout   io.Writer
	stderr   io.Writer
}

// newEnv builds the command environment. A non-empty file replaces the
// configured sources.
func newEnv(cfg *config.Config, dataDir, file string, stdout, stderr io.Writer) *env {
	e := &env{cfg: cfg, stdout: stdout, stderr: stderr}
	if file != "" {
		e.resolve = func() ([]string, error) { return []string{file}, nil }
		return e
	}
	e.patterns = cfg.SourcePatterns(dataDir)
	e.resolve = func() ([]string, error) { return cfg.ResolveSources(dataDir) }
	return e
}

// loadColors resolves the sources and merges them into one map.
func (e *env) loadColors() (*colormap.ColorMap, error) {
	sources, err := e.resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve color sources: %w", err)
	}
	return colormap.LoadFiles(sources...)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, prepares the data directory, config, and logger, and
// dispatches to the selected command. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(paths.BinaryName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data-dir", defaultDataDir(), "Data directory for config, colors, and logs")
	file := fs.String("file", "", "Load this color file instead of the configured sources")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "%s %s\n", paths.BinaryName, resolveVersion())
		return exitOK
	case "parse":
		return cmdParse(cmdArgs, stdout, stderr)
	case "get", "list", "check", "watch":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}

	dp := paths.DataDir{Root: *dataDir}
	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		fmt.Fprintf(stderr, "fatal: create data dir: %v\n", err)
		return exitFail
	}
	seedDefaults(dp, stderr)

	cfg, err := config.Load(dp.Root)
	if err != nil {
		fmt.Fprintf(stderr, "fatal: load config: %v\n", err)
		return exitFail
	}

	var tee io.Writer
	if cmd == "watch" {
		tee = stderr
	}
	log, logCloser, err := logger.NewLogger(dp.Log(), logger.ParseLevel(cfg.Log.Level), cfg.Log.MaxSizeMB, tee)
	if err != nil {
		fmt.Fprintf(stderr, "fatal: init logger: %v\n", err)
		return exitFail
	}
	defer logCloser.Close()
	prev := slog.Default()
	slog.SetDefault(log)
	defer slog.SetDefault(prev)

	slog.Debug("hexmap starting", "command", cmd, "version", resolveVersion())

	e := newEnv(cfg, dp.Root, *file, stdout, stderr)
	switch cmd {
	case "get":
		return cmdGet(e, cmdArgs)
	case "list":
		return cmdList(e)
	case "check":
		return cmdCheck(e)
	default: // "watch"
		return cmdWatch(e)
	}
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// cmdGet prints "name<TAB>color" for each requested name. Missing names are
// reported on stderr and make the command fail after all names are printed.
func cmdGet(e *env, names []string) int {
	if len(names) == 0 {
		fmt.Fprintln(e.stderr, "get: at least one color name is required")
		return exitUsage
	}
	cm, err := e.loadColors()
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}

	code := exitOK
	for _, name := range names {
		c, ok := cm.Get(name)
		if !ok {
			fmt.Fprintf(e.stderr, "%s: not found\n", name)
			code = exitFail
			continue
		}
		fmt.Fprintf(e.stdout, "%s\t%s\n", name, e.cfg.FormatColor(c))
	}
	return code
}

// cmdList prints every entry sorted by name, optionally with a swatch.
func cmdList(e *env) int {
	cm, err := e.loadColors()
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}

	names := cm.Names()
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, name := range names {
		c, _ := cm.Get(name)
		line := fmt.Sprintf("%-*s  %s", width, name, e.cfg.FormatColor(c))
		if e.cfg.Display.Swatch {
			line = swatch(c) + " " + line
		}
		fmt.Fprintln(e.stdout, line)
	}
	return exitOK
}

// swatch renders a short block filled with c. Without a color-capable
// terminal lipgloss renders plain spaces.
func swatch(c color.Color) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("    ")
}

// cmdParse parses each argument as a hex color. It stops at the first
// invalid input. It needs no data directory, config, or log file.
func cmdParse(inputs []string, stdout, stderr io.Writer) int {
	if len(inputs) == 0 {
		fmt.Fprintln(stderr, "parse: at least one hex color is required")
		return exitUsage
	}
	for _, in := range inputs {
		c, err := color.ParseHex(in)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFail
		}
		fmt.Fprintf(stdout, "%s\t%s\n", in, config.FormatColor(c, "both"))
	}
	return exitOK
}

// cmdCheck loads every source individually and lists skipped lines as
// "path:line: reason". It fails when a source is unreadable or any line
// was skipped.
func cmdCheck(e *env) int {
	sources, err := e.resolve()
	if err != nil {
		fmt.Fprintf(e.stderr, "error: resolve color sources: %v\n", err)
		return exitFail
	}
	code := exitOK
	total := 0
	for _, src := range sources {
		cm, skipped, err := colormap.LoadDetailed(src)
		if err != nil {
			fmt.Fprintf(e.stderr, "error: %v\n", err)
			code = exitFail
			continue
		}
		total += cm.Len()
		for _, s := range skipped {
			fmt.Fprintf(e.stdout, "%s:%d: %s\n", src, s.Line, s.Reason)
			code = exitFail
		}
		slog.Debug("checked color source", "path", src, "entries", cm.Len(), "skipped", len(skipped))
	}
	fmt.Fprintf(e.stdout, "%d sources, %d entries\n", len(sources), total)
	return code
}

// cmdWatch loads the colors and reloads them on every change until an
// interrupt or terminate signal arrives. Glob sources are watched as
// patterns, and each reload expands them again.
func cmdWatch(e *env) int {
	sources, err := e.resolve()
	if err != nil {
		fmt.Fprintf(e.stderr, "error: resolve color sources: %v\n", err)
		return exitFail
	}
	cm, err := colormap.LoadFiles(sources...)
	if err != nil {
		fmt.Fprintf(e.stderr, "error: %v\n", err)
		return exitFail
	}
	slog.Info("loaded colors", "entries", cm.Len(), "sources", len(sources))

	interval := time.Duration(e.cfg.Watch.PollIntervalSeconds) * time.Second
	w, err := watch.New(sources, interval, watch.WithPatterns(e.patterns...))
	if err != nil {
		logger.Fail(slog.Default(), "failed to create watcher", "error", err)
		return exitFail
	}
	defer w.Close()
	if w.Polling() {
		slog.Info("using polling mode for file watching", "interval", interval)
	}

	watchLoop(w.Events(), signalChannel(), e.loadColors, cm)
	return exitOK
}

// ///////////////////////////////////////////////
// Watch Loop
// ///////////////////////////////////////////////

// watchLoop reloads the color map on each change event and returns the
// last successfully loaded map once stop fires. A failed reload keeps the
// previous map. Each reload builds a fresh map; the previous one is never
// mutated.
func watchLoop(
	events <-chan struct{},
	stop <-chan os.Signal,
	reload func() (*colormap.ColorMap, error),
	current *colormap.ColorMap,
) *colormap.ColorMap {
	for {
		select {
		case <-stop:
			slog.Info("received shutdown signal")
			return current

		case <-events:
			logger.Trace(slog.Default(), "color source changed")
			next, err := reload()
			if err != nil {
				slog.Warn("reload failed, keeping previous colors", "error", err)
				continue
			}
			logChanges(current, next)
			current = next
		}
	}
}

// logChanges logs the entry count and the names whose colors were added,
// changed, or removed between two loads.
func logChanges(prev, next *colormap.ColorMap) {
	var added, changed, removed []string
	for _, name := range next.Names() {
		nc, _ := next.Get(name)
		pc, ok := prev.Get(name)
		switch {
		case !ok:
			added = append(added, name)
		case pc != nc:
			changed = append(changed, name)
		}
	}
	for _, name := range prev.Names() {
		if _, ok := next.Get(name); !ok {
			removed = append(removed, name)
		}
	}
	slog.Info("reloaded colors",
		"entries", next.Len(),
		"added", strings.Join(added, " "),
		"changed", strings.Join(changed, " "),
		"removed", strings.Join(removed, " "),
	)
}
