// Package cacheflow provides the version information for cacheflow.
package cacheflow

// Version is the current version of cacheflow.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
