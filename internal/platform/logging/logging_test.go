package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New("web", Settings{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewBuildsJSONLogger(t *testing.T) {
	t.Parallel()

	logger, err := New("web", Settings{Level: "debug", JSON: true})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger")
	}
}
