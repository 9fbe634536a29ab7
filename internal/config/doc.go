// SPDX-License-Identifier: MPL-2.0

// Package config loads the modrt configuration with Viper, using CUE as the
// file format.
//
// Values are layered: built-in defaults, then an optional config.cue file
// validated against the embedded #Config schema (config_schema.cue), then
// MODRT_* environment variables. The file is taken from --config when given,
// otherwise from the platform config directory (for example
// ~/.config/modrt/config.cue), otherwise from ./config.cue. A missing file is
// not an error.
package config
