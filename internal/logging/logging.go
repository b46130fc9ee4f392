// Package logging provides the file-backed diagnostic log for shipmate.
// Every classification, dispatch decision, and backend error lands here so
// sessions can be reconstructed after the fact. The log is independent of
// anything shown to the user.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxBytes = 1 << 20
	defaultBackups  = 5
)

// rotatingWriter appends to a single file and rotates it once it grows past
// maxBytes, keeping up to backups numbered copies (file.1 is the newest).
type rotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
}

func newRotatingWriter(path string, maxBytes int64, backups int) (*rotatingWriter, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if backups < 0 {
		backups = defaultBackups
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	return &rotatingWriter{
		path:     path,
		maxBytes: maxBytes,
		backups:  backups,
		file:     f,
		size:     info.Size(),
	}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			// Rotation failure should not lose the entry; keep appending.
			fmt.Fprintf(os.Stderr, "[logging] rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate shifts file.N -> file.N+1, dropping the oldest, then reopens a fresh
// file at the base path. Caller holds the lock.
func (w *rotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	if w.backups > 0 {
		os.Remove(backupPath(w.path, w.backups))
		for i := w.backups - 1; i >= 1; i-- {
			os.Rename(backupPath(w.path, i), backupPath(w.path, i+1))
		}
		if err := os.Rename(w.path, backupPath(w.path, 1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else {
		os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func backupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

var (
	mu     sync.Mutex
	logger *log.Logger
	writer *rotatingWriter
)

// Setup initializes the package-level logger at path. Calling it again closes
// the previous file. Until Setup is called, Info/Error are no-ops.
func Setup(path string, maxBytes int64, backups int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	w, err := newRotatingWriter(path, maxBytes, backups)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Close()
	}
	writer = w
	logger = log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return nil
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Close()
		writer = nil
		logger = nil
	}
}

func get() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Info records an informational entry.
func Info(format string, args ...any) {
	if l := get(); l != nil {
		l.Printf("[INFO] "+format, args...)
	}
}

// Error records an error entry.
func Error(format string, args ...any) {
	if l := get(); l != nil {
		l.Printf("[ERROR] "+format, args...)
	}
}
