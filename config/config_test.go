package config

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("FINSIGHT_TEST_STR", "value")
	if got := getEnv("FINSIGHT_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %q", got)
	}
	if got := getEnv("FINSIGHT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("FINSIGHT_TEST_EMPTY", "")
	if got := getEnv("FINSIGHT_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("empty value should use fallback, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("FINSIGHT_TEST_INT", "42")
	if got := getEnvInt("FINSIGHT_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	t.Setenv("FINSIGHT_TEST_INT_BAD", "not-a-number")
	if got := getEnvInt("FINSIGHT_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("expected fallback for unparsable value, got %d", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("FINSIGHT_TEST_FLOAT", "0.75")
	if got := getEnvFloat("FINSIGHT_TEST_FLOAT", 0.5); got != 0.75 {
		t.Fatalf("expected 0.75, got %f", got)
	}
	if got := getEnvFloat("FINSIGHT_TEST_FLOAT_MISSING", 0.5); got != 0.5 {
		t.Fatalf("expected fallback, got %f", got)
	}
}
