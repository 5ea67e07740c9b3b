package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSaveDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hac.toml")
	if err := SaveDefault(path); err != nil {
		t.Fatal(err)
	}
	if err := SaveDefault(path); err == nil {
		t.Fatal("expected an error saving over an existing file")
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s != DefaultSettings() {
		t.Fatalf("loaded %+v, want the defaults", s)
	}
}

func TestLoadKeepsDefaultsForMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hac.toml")
	data := "[protocol]\nversion = 527\n\n[interception]\ninbound = true\noutbound = false\n\n[logging]\nlevel = \"debug\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Protocol.Version != 527 || s.LogLevel() != logrus.DebugLevel {
		t.Fatalf("unexpected settings %+v", s)
	}
	if opts := s.InterceptionOptions(); !opts.Inbound || opts.Outbound {
		t.Fatalf("interception options = %+v", opts)
	}
	if s.Network.RemoteAddress != DefaultSettings().Network.RemoteAddress {
		t.Fatalf("remote address = %q, want the default", s.Network.RemoteAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want an error wrapping os.ErrNotExist", err)
	}
}

func TestLogLevelFallback(t *testing.T) {
	s := DefaultSettings()
	s.Logging.Level = "loud"
	if s.LogLevel() != logrus.InfoLevel {
		t.Fatalf("LogLevel() = %v, want info", s.LogLevel())
	}
}
