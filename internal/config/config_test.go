package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	config := Default()

	if config.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.LogLevel)
	}

	if config.ScanTimeout != 10*time.Second {
		t.Errorf("Expected default scan timeout 10s, got %v", config.ScanTimeout)
	}

	if config.RequestedMTU != 517 {
		t.Errorf("Expected default requested MTU 517, got %d", config.RequestedMTU)
	}

	if config.MaxConcurrentConnections != 16 {
		t.Errorf("Expected default max connections 16, got %d", config.MaxConcurrentConnections)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	config := Default()

	if err := config.Validate(); err != nil {
		t.Errorf("Valid config failed validation: %v", err)
	}

	config.ScanTimeout = -1 * time.Second
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for negative scan timeout")
	}

	config = Default()
	config.RequestedMTU = 10
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for out-of-range MTU")
	}

	config = Default()
	config.LogLevel = "invalid"
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for invalid log level")
	}

	config = Default()
	config.LogFormat = "invalid"
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for invalid log format")
	}

	config = Default()
	config.MaxConcurrentConnections = 0
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for non-positive connection limit")
	}
}

func TestEnvironmentVariables(t *testing.T) {
	os.Setenv("GOBLE_LOG_LEVEL", "debug")
	os.Setenv("GOBLE_REQUESTED_MTU", "185")
	os.Setenv("GOBLE_MAX_CONNECTIONS", "4")
	defer func() {
		os.Unsetenv("GOBLE_LOG_LEVEL")
		os.Unsetenv("GOBLE_REQUESTED_MTU")
		os.Unsetenv("GOBLE_MAX_CONNECTIONS")
	}()

	config := Default()

	if config.LogLevel != "debug" {
		t.Errorf("Expected log level from env 'debug', got '%s'", config.LogLevel)
	}
	if config.RequestedMTU != 185 {
		t.Errorf("Expected requested MTU from env 185, got %d", config.RequestedMTU)
	}
	if config.MaxConcurrentConnections != 4 {
		t.Errorf("Expected max connections from env 4, got %d", config.MaxConcurrentConnections)
	}
}
