package env

import (
	"os"
	"strings"
)

const (
	LogFormatKey  = "COURSEHUB_LOG_FORMAT"
	InstanceIDKey = "COURSEHUB_INSTANCE_ID"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process in logs and lock diagnostics.
func InstanceID() string {
	if id := Get(InstanceIDKey, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
