package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf)

	logger.Info("hello")
	if buf.Len() == 0 {
		t.Error("expected log output")
	}

	SetLogLevel(logger, log.ErrorLevel)
	buf.Reset()
	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Error("expected info to be suppressed at error level")
	}
}

func TestGenerateID(t *testing.T) {
	first := GenerateID()
	second := GenerateID()

	if first == "" || second == "" {
		t.Fatal("expected non-empty ids")
	}
	if first == second {
		t.Error("expected unique ids")
	}
}

func TestDatabase(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ConfigureDatabase(db, 4, 2)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Errorf("expected usable connection: %v", err)
	}
}
