// Package confloader provides configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources and formats using koanf as the underlying library.
//
// Features:
//
//   - Multiple Sources: Files, environment variables, flags, maps
//   - Multiple Formats: YAML files, typed env values
//   - Watch Support: Automatic reload on config file changes
//   - Type Safety: Unmarshaling into typed structs
//   - Defaults: Default value support for missing keys
//
// Priority (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration files
//  4. Default values
//
// Environment variables nest with a double underscore so that key names
// may themselves contain underscores:
//
//	ROLLCALL_SERVER__HTTP__ADDR        -> server.http.addr
//	ROLLCALL_TOKEN__ROTATION_PERIOD    -> token.rotation_period
//	ROLLCALL_STORAGE__DATA_DIR         -> storage.data_dir
package confloader
