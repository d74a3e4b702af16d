// Package config loads olmstore configuration from YAML files.
//
// Configuration selects the storage engine and path plus logging
// options. Environment variables in the form ${VAR_NAME} are expanded
// before parsing, and Load validates the result, returning the first
// failure it finds.
package config
