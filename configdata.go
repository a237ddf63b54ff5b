// Package hexmap provides embedded assets for the hexmap command.
//
// The root package exists solely to embed the first-run defaults: the tool
// configuration [DefaultConfigTOML] and a starter color file
// [DefaultColorsConf]. cmd/hexmap copies both into the data directory when
// they are missing.
package hexmap

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

// DefaultColorsConf holds the raw bytes of color.default.conf.
//
//go:embed color.default.conf
var DefaultColorsConf []byte
