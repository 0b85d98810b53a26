package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vk/shipline/internal/cli"
)

const sampleDefinition = `
pipeline {
  binary = "wascchost"
}

remote {
  base_url = "https://api.example.com"
}

matrix {
  dimension "os" {
    values = ["linux", "macos", "windows"]
  }
  dimension "engine" {
    values = ["wasm3", "wasmtime"]
  }
}

stage "release" "create" {}

stage "publish" "assets" {
  matrix     = true
  depends_on = ["release.create"]
}

stage "registry" "crates" {
  depends_on = ["publish.assets"]
}
`

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}

	err := run(out, nil)

	if err != nil {
		t.Fatalf("expected clean usage exit, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Error("usage text not printed")
	}
}

func TestRun_InvalidFlagReturnsExitError(t *testing.T) {
	err := run(&bytes.Buffer{}, []string{"-log-format", "xml", "-tag", "v1.0.0", "p.hcl"})

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected an ExitError, got %v", err)
	}
}

func TestRun_DryRunPlansFullGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	if err := os.WriteFile(path, []byte(sampleDefinition), 0o644); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}

	err := run(out, []string{"-tag", "v2.0.0", "-dry-run", "-log-level", "error", path})

	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	planned := out.String()
	if !strings.Contains(planned, "8 nodes") {
		t.Errorf("expected 8 planned nodes, got:\n%s", planned)
	}
	if !strings.Contains(planned, "publish.assets[windows-wasmtime]") {
		t.Errorf("plan should list every matrix cell, got:\n%s", planned)
	}
}
