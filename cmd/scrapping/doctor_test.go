package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckResultsDirWritable(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	if err := checkResultsDirWritable(); err != nil {
		t.Fatalf("checkResultsDirWritable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "results")); err != nil {
		t.Errorf("expected results dir to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "results", ".doctor_probe")); !os.IsNotExist(err) {
		t.Errorf("expected probe file to be cleaned up, stat err = %v", err)
	}
}

func TestCheckBrowserBackendReturnsErrorWhenAbsent(t *testing.T) {
	t.Setenv("PATH", "")
	if err := checkBrowserBackend(); err == nil {
		t.Error("expected error when no browser binary is on PATH")
	}
}
