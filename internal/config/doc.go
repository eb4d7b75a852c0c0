// Package config loads and validates streamd YAML configuration.
//
// Configuration files support ${VAR} environment variable expansion,
// e.g. for database passwords.
package config
