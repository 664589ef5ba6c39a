package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Run("returns default when unset", func(t *testing.T) {
		if got := GetEnvOrDefault("FLUX_TEST_UNSET_VAR", "fallback"); got != "fallback" {
			t.Errorf("GetEnvOrDefault() = %q, want %q", got, "fallback")
		}
	})

	t.Run("returns value when set", func(t *testing.T) {
		t.Setenv("FLUX_TEST_SET_VAR", "value")
		if got := GetEnvOrDefault("FLUX_TEST_SET_VAR", "fallback"); got != "value" {
			t.Errorf("GetEnvOrDefault() = %q, want %q", got, "value")
		}
	})
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int
		expected int
	}{
		{"valid integer", "42", 7, 42},
		{"empty uses default", "", 7, 7},
		{"garbage uses default", "not-a-number", 7, 7},
		{"negative parses", "-3", 7, -3},
		{"surrounding whitespace tolerated", " 42 ", 7, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("FLUX_TEST_INT", tt.value)
			}
			if got := ParseIntEnv("FLUX_TEST_INT", tt.def); got != tt.expected {
				t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.value, got, tt.expected)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("FLUX_TEST_BOOL", tt.value)
			}
			if got := ParseBoolEnv("FLUX_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestParseFloat64Env(t *testing.T) {
	t.Setenv("FLUX_TEST_FLOAT", "2.5")
	if got := ParseFloat64Env("FLUX_TEST_FLOAT", 1.0); got != 2.5 {
		t.Errorf("ParseFloat64Env() = %v, want 2.5", got)
	}
	if got := ParseFloat64Env("FLUX_TEST_FLOAT_UNSET", 1.0); got != 1.0 {
		t.Errorf("ParseFloat64Env() default = %v, want 1.0", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("FLUX_TEST_DUR", "90")
	if got := ParseDurationEnv("FLUX_TEST_DUR", 30); got != 90*time.Second {
		t.Errorf("ParseDurationEnv() = %v, want 90s", got)
	}
	if got := ParseDurationEnv("FLUX_TEST_DUR_UNSET", 30); got != 30*time.Second {
		t.Errorf("ParseDurationEnv() default = %v, want 30s", got)
	}
}
