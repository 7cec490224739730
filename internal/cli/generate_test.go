package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateConfigFromFlags(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--verbose",
		"generate",
		"--input", "api.wadl",
		"--out", "./gen/client.gen.go",
		"--package-name", "widgets",
		"--http-mode", "async",
		"--naming-style", "snake",
		"--media-type", "application/xml,application/json",
		"--inline-single-use",
		"--strict",
		"--no-docs",
		"--strip-code-examples",
		"--allow-network",
		"--dry-run",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "api.wadl" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Out != "./gen/client.gen.go" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if captured.PackageName != "widgets" {
		t.Errorf("package name mismatch: got %q", captured.PackageName)
	}
	if captured.HTTPMode != "async" {
		t.Errorf("http mode mismatch: got %q", captured.HTTPMode)
	}
	if captured.NamingStyle != "snake" {
		t.Errorf("naming style mismatch: got %q", captured.NamingStyle)
	}
	if want := []string{"application/xml", "application/json"}; !equalStringSlices(captured.MediaTypes, want) {
		t.Errorf("media types mismatch: got %v", captured.MediaTypes)
	}
	for name, got := range map[string]bool{
		"inline-single-use":   captured.InlineSingleUse,
		"strict":              captured.Strict,
		"no-docs":             captured.NoDocs,
		"strip-code-examples": captured.StripCodeExamples,
		"allow-network":       captured.AllowNetwork,
		"dry-run":             captured.DryRun,
		"force":               captured.Force,
		"verbose":             captured.Verbose,
	} {
		if !got {
			t.Errorf("expected %s true", name)
		}
	}
}

func TestGenerateConfigDefaults(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{"generate", "--input", "api.wadl"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Out != "client.gen.go" {
		t.Errorf("default out: got %q", captured.Out)
	}
	if captured.HTTPMode != "sync" || captured.NamingStyle != "camel" {
		t.Errorf("defaults: mode=%q style=%q", captured.HTTPMode, captured.NamingStyle)
	}
	if want := []string{"application/json"}; !equalStringSlices(captured.MediaTypes, want) {
		t.Errorf("default media types: got %v", captured.MediaTypes)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config.wadl
out: from-config.gen.go
packageName: cfgpkg
httpMode: async
namingStyle: snake
mediaTypes:
  - application/xml
strict: true
dryRun: true
force: false
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "flag.wadl",
		"--http-mode", "sync",
		"--dry-run=false",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "flag.wadl" {
		t.Errorf("input: want flag.wadl got %q", captured.Input)
	}
	if captured.Out != "from-config.gen.go" {
		t.Errorf("out: want from-config.gen.go got %q", captured.Out)
	}
	if captured.PackageName != "cfgpkg" {
		t.Errorf("package name: got %q", captured.PackageName)
	}
	if captured.HTTPMode != "sync" {
		t.Errorf("http mode: flag override lost, got %q", captured.HTTPMode)
	}
	if captured.NamingStyle != "snake" {
		t.Errorf("naming style: config value lost, got %q", captured.NamingStyle)
	}
	if want := []string{"application/xml"}; !equalStringSlices(captured.MediaTypes, want) {
		t.Errorf("media types: got %v", captured.MediaTypes)
	}
	if !captured.Strict {
		t.Errorf("expected strict true from config file")
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("unknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "api.wadl",
	})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigRejectsBadEnums(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"generate", "--input", "api.wadl", "--http-mode", "threaded"},
		{"generate", "--input", "api.wadl", "--naming-style", "kebab"},
		{"generate"},
	} {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)
		err := root.Execute()
		if !errors.Is(err, ErrUsage) {
			t.Errorf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
