package env

import "os"

// Get reads an environment variable before structured config is available,
// falling back when the variable is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
