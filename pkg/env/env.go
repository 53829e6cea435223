// Package env reads raw process environment for the few spots that run
// before envconfig has parsed the configuration (logger bootstrap).
package env

import "os"

// Get returns the value of key, or fallback when the variable is unset or
// empty.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
