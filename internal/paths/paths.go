// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	ConfigFile = "config.toml"
	ColorsFile = "color.conf"
	LogFile    = "hexmap.log"
)

// BackupSuffix is appended to a config file name before migration rewrites it.
const BackupSuffix = ".bak"

const (
	BinaryName = "hexmap"
	DataDirRel = ".hexmap" // relative to $HOME
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// ConfigBackup returns the path the pre-migration config is copied to.
func (d DataDir) ConfigBackup() string { return d.Config() + BackupSuffix }

// Colors returns the full path to the default color file.
func (d DataDir) Colors() string { return filepath.Join(d.Root, ColorsFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Resolve returns p unchanged when absolute, otherwise joined to the root.
func (d DataDir) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}
