package main

import (
	"runtime"
	"strings"
	"testing"
)

func TestBuildStringDev(t *testing.T) {
	s := buildString()
	if !strings.HasPrefix(s, "cachalot ") {
		t.Errorf("buildString() = %q, expected cachalot prefix", s)
	}
	if !strings.Contains(s, runtime.Version()) {
		t.Errorf("buildString() = %q, missing Go version", s)
	}
	if strings.Contains(s, "\n") {
		t.Errorf("buildString() = %q, dev builds should render one line", s)
	}
}

func TestBuildStringStamped(t *testing.T) {
	oldCommit, oldDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = oldCommit, oldDate }()
	GitCommit, BuildDate = "abc1234", "2026-08-30"

	s := buildString()
	if !strings.Contains(s, "commit abc1234") {
		t.Errorf("buildString() = %q, missing stamped commit", s)
	}
	if !strings.Contains(s, "built 2026-08-30") {
		t.Errorf("buildString() = %q, missing stamped build date", s)
	}
}
