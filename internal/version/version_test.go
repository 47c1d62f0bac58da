package version

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() {
		Version, Commit = origVersion, origCommit
	}()

	Version = "1.2.3"
	Commit = "abc1234"

	if got, want := String(), "1.2.3 (abc1234)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("starting", Attr())

	out := buf.String()
	if !strings.Contains(out, "build.version="+Version) || !strings.Contains(out, "build.commit="+Commit) {
		t.Errorf("log line = %q", out)
	}
}
