package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestInitLogger_Stderr(t *testing.T) {
	logger, err := InitLogger("", false)
	if err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	if logger == nil {
		t.Fatal("InitLogger returned nil logger")
	}
}

func TestInitLogger_File(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
	}{
		{"info level", false},
		{"debug level", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logPath := filepath.Join(t.TempDir(), "logs", "soapbridge.log")

			logger, err := InitLogger(logPath, tt.debug)
			if err != nil {
				t.Fatalf("InitLogger failed: %v", err)
			}

			logger.Info("test message", slog.String("key", "value"))
			logger.Debug("debug message")

			info, err := os.Stat(logPath)
			if err != nil {
				t.Fatalf("log file was not created: %v", err)
			}
			if info.Size() == 0 {
				t.Error("log file is empty after writing a message")
			}
		})
	}
}

func TestRotateIfNeeded(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "soapbridge.log")

	// Under the size limit: no rotation
	if err := os.WriteFile(logPath, []byte("small"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := rotateIfNeeded(logPath); err != nil {
		t.Fatalf("rotateIfNeeded failed: %v", err)
	}
	if _, err := os.Stat(logPath + ".1"); !os.IsNotExist(err) {
		t.Error("expected no rotation for a small file")
	}

	// Over the size limit: rotated to .1
	big := make([]byte, maxLogSize)
	if err := os.WriteFile(logPath, big, 0644); err != nil {
		t.Fatal(err)
	}
	if err := rotateIfNeeded(logPath); err != nil {
		t.Fatalf("rotateIfNeeded failed: %v", err)
	}
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("expected rotated file: %v", err)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("expected current log to have been rotated away")
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	if logger == nil {
		t.Fatal("NewNopLogger returned nil")
	}

	// Verify it doesn't panic when logging
	logger.Info("test info")
	logger.Debug("test debug")
	logger.Error("test error")
	logger.Warn("test warn")
}
