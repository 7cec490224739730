package cli

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUnknownGenerateFlag(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--input", "api.wadl", "--naming"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "unknown flag") {
		t.Fatalf("unexpected error text: %v", err)
	}
	// the usage text shown with the error lists the real generate flags
	if !strings.Contains(err.Error(), "--naming-style") {
		t.Fatalf("usage text missing generate flags: %v", err)
	}
}
