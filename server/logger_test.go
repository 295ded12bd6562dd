package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	if err := InitLogger(path, "debug"); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	Log.Debugw("session joined", "session", 1)
	SyncLogger()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "session joined") || !strings.Contains(string(b), "DEBUG") {
		t.Fatalf("log content = %q", string(b))
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	if err := InitLogger(filepath.Join(t.TempDir(), "app.log"), "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
