// Tests for the hexmap command covering version resolution, flag and command
// dispatch through [run], first-run seeding of the data directory, each
// subcommand's output and exit code, and the [watchLoop] reload cycle.

package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tools.zach/dev/hexmap/internal/color"
	"tools.zach/dev/hexmap/internal/colormap"
	"tools.zach/dev/hexmap/internal/config"
	"tools.zach/dev/hexmap/internal/paths"
)

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// Dispatch Tests
// ///////////////////////////////////////////////

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCmd(t, t.TempDir(), "version")
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	if !strings.HasPrefix(stdout, paths.BinaryName+" ") {
		t.Errorf("stdout = %q, want binary name and version", stdout)
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"paint"}},
		{"unknown flag", []string{"-bogus", "list"}},
		{"get without names", []string{"get"}},
		{"parse without input", []string{"parse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCmd(t, t.TempDir(), tt.args...)
			if code != exitUsage {
				t.Errorf("exit = %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestRunSeedsDefaults(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := runCmd(t, dir, "list")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}

	dp := paths.DataDir{Root: dir}
	for _, p := range []string{dp.Config(), dp.Colors()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", filepath.Base(p), err)
		}
	}
	for _, want := range []string{"background", "#000000", "accent", "#ff00aa"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunKeepsExistingColors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, paths.ColorsFile), "only #123456\n")

	code, stdout, _ := runCmd(t, dir, "get", "only")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if stdout != "only\t#123456\n" {
		t.Errorf("stdout = %q", stdout)
	}
	data, _ := os.ReadFile(filepath.Join(dir, paths.ColorsFile))
	if string(data) != "only #123456\n" {
		t.Errorf("existing color file was overwritten: %q", data)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, paths.ConfigFile), "version = 2\n[display]\nformat = \"xml\"\n")

	code, _, stderr := runCmd(t, dir, "list")
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stderr, "display.format") {
		t.Errorf("stderr = %q, want validation error", stderr)
	}
}

// ///////////////////////////////////////////////
// Command Tests
// ///////////////////////////////////////////////

func TestRunGet(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := runCmd(t, dir, "get", "background", "accent")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if want := "background\t#000000\naccent\t#ff00aa\n"; stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRunGetMissing(t *testing.T) {
	code, stdout, stderr := runCmd(t, t.TempDir(), "get", "nope", "background")
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stderr, "nope: not found") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stdout, "background") {
		t.Errorf("found names should still print, stdout = %q", stdout)
	}
}

func TestRunGetRGBAFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, paths.ConfigFile), "version = 2\n[display]\nformat = \"rgba\"\n")

	_, stdout, _ := runCmd(t, dir, "get", "background")
	if stdout != "background\trgba(0, 0, 0, 255)\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunFileFlag(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "palette.conf")
	writeFile(t, file, "brand 0xabcdef\n")

	code, stdout, _ := runCmd(t, dir, "-file", file, "get", "brand")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if stdout != "brand\t#abcdef\n" {
		t.Errorf("stdout = %q", stdout)
	}

	code, _, _ = runCmd(t, dir, "-file", file, "get", "background")
	if code != exitFail {
		t.Error("-file should replace the configured sources")
	}
}

func TestRunMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.conf")
	code, _, stderr := runCmd(t, t.TempDir(), "-file", missing, "list")
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stderr, "not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunParse(t *testing.T) {
	code, stdout, _ := runCmd(t, t.TempDir(), "parse", "#ff0000", "0X00ff00")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	want := "#ff0000\t#ff0000 rgba(255, 0, 0, 255)\n0X00ff00\t#00ff00 rgba(0, 255, 0, 255)\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRunParseSkipsDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unused")
	code, _, _ := runCmd(t, dir, "parse", "#abcdef")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("parse should not create the data dir, stat err = %v", err)
	}
}

func TestRunParseInvalid(t *testing.T) {
	code, _, stderr := runCmd(t, t.TempDir(), "parse", "#12345")
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stderr, color.ErrFormat.Error()) {
		t.Errorf("stderr = %q, want format error", stderr)
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, paths.ColorsFile), "good #000000\nbad #zz0000\n")

	code, stdout, _ := runCmd(t, dir, "check")
	if code != exitFail {
		t.Errorf("exit = %d, want %d", code, exitFail)
	}
	if !strings.Contains(stdout, paths.ColorsFile+":2:") {
		t.Errorf("stdout = %q, want skipped line 2", stdout)
	}
	if !strings.Contains(stdout, "1 sources, 1 entries") {
		t.Errorf("stdout = %q, want summary", stdout)
	}
}

func TestRunCheckClean(t *testing.T) {
	code, stdout, _ := runCmd(t, t.TempDir(), "check")
	if code != exitOK {
		t.Errorf("exit = %d, stdout = %s", code, stdout)
	}
}

// ///////////////////////////////////////////////
// watchLoop Tests
// ///////////////////////////////////////////////

func TestWatchLoop(t *testing.T) {
	events := make(chan struct{})
	stop := make(chan os.Signal, 1)

	first := colormap.New()
	first.Insert("a", color.New(0, 0, 0, 255))

	second := colormap.New()
	second.Insert("a", color.New(1, 1, 1, 255))
	second.Insert("b", color.New(2, 2, 2, 255))

	results := []struct {
		m   *colormap.ColorMap
		err error
	}{
		{second, nil},
		{nil, errors.New("boom")},
	}
	calls := 0
	reload := func() (*colormap.ColorMap, error) {
		r := results[calls]
		calls++
		return r.m, r.err
	}

	done := make(chan *colormap.ColorMap, 1)
	go func() { done <- watchLoop(events, stop, reload, first) }()

	events <- struct{}{}
	events <- struct{}{}
	stop <- os.Interrupt

	got := <-done
	if calls != 2 {
		t.Errorf("reload calls = %d, want 2", calls)
	}
	if got != second {
		t.Error("failed reload should keep the last good map")
	}
	if c, _ := first.Get("a"); c != color.New(0, 0, 0, 255) {
		t.Error("previous map was mutated")
	}
}

func TestWatchLoopPicksUpNewGlobMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "themes", "a.conf"), "a #000000\n")

	cfg := config.DefaultConfig()
	cfg.Colors.Sources = []string{"themes/*.conf"}
	e := newEnv(cfg, dir, "", io.Discard, io.Discard)

	initial, err := e.loadColors()
	if err != nil {
		t.Fatalf("loadColors: %v", err)
	}
	if _, ok := initial.Get("b"); ok {
		t.Fatal("b should not exist before its file is created")
	}

	writeFile(t, filepath.Join(dir, "themes", "b.conf"), "b #ffffff\n")

	events := make(chan struct{})
	stop := make(chan os.Signal, 1)
	done := make(chan *colormap.ColorMap, 1)
	go func() { done <- watchLoop(events, stop, e.loadColors, initial) }()

	events <- struct{}{}
	stop <- os.Interrupt

	got := <-done
	if c, ok := got.Get("b"); !ok || c != color.New(255, 255, 255, 255) {
		t.Errorf("after reload, b = %v present=%v names=%v", c, ok, got.Names())
	}
	if _, ok := got.Get("a"); !ok {
		t.Error("a should still be loaded")
	}
}

func TestNewEnvFileOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Colors.Sources = []string{"themes/*.conf"}
	e := newEnv(cfg, t.TempDir(), "/tmp/palette.conf", io.Discard, io.Discard)

	sources, err := e.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(sources) != 1 || sources[0] != "/tmp/palette.conf" {
		t.Errorf("sources = %v, want only the -file path", sources)
	}
	if len(e.patterns) != 0 {
		t.Errorf("patterns = %v, want none with -file", e.patterns)
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func runCmd(t *testing.T, dataDir string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-data-dir", dataDir}, args...)
	code := run(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
