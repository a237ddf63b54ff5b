package migrate

import (
	"fmt"
	"log/slog"
)

// Registry holds the version and migrations for a single schema target.
type Registry struct {
	// CurrentVersion is the latest schema version that this registry targets.
	CurrentVersion int
	// Migrations is the list of versioned upgrades. Exported so tests can
	// swap it out.
	Migrations []Migration
}

// Register appends a migration to the registry. It panics if a migration
// with the same version is already registered or if the version exceeds
// [Registry.CurrentVersion].
func (r *Registry) Register(m Migration) {
	if m.Version > r.CurrentVersion {
		panic(fmt.Sprintf("migrate: migration v%d is beyond current version %d", m.Version, r.CurrentVersion))
	}
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether data at fileVersion differs from the
// current version and has migrations to apply.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	return fileVersion < r.CurrentVersion && NeedsMigration(fileVersion, r.Migrations)
}

// Upgrade brings data from fromVersion to [Registry.CurrentVersion]. Data
// from a newer schema is rejected with [ErrNewerVersion].
func (r *Registry) Upgrade(data []byte, fromVersion int) ([]byte, error) {
	if fromVersion > r.CurrentVersion {
		return nil, fmt.Errorf("version %d > %d: %w", fromVersion, r.CurrentVersion, ErrNewerVersion)
	}
	out, version, err := Run(data, fromVersion, r.Migrations)
	if err != nil {
		return nil, err
	}
	if version < r.CurrentVersion {
		slog.Debug("no migration registered up to current version", "reached", version, "current", r.CurrentVersion)
	}
	return out, nil
}

// Config is the migration registry for config.toml files. Version 2 replaced
// the single colors.file key with the colors.sources list.
var Config = &Registry{CurrentVersion: 2}
