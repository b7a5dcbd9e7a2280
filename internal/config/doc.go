// Package config loads the crontabctl configuration file.
//
// Files ending in .yaml/.yml are YAML, anything else is JSON. Both are
// decoded strictly: unknown keys are errors.
package config
