package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotExist is returned by Read for a key that has never been written.
var ErrNotExist = errors.New("datastore: key does not exist")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config holds configuration options for the DataStore
type Config struct {
	Dir         string
	BackupCount int // Number of backup files to keep per key
	Logger      *zap.Logger
}

// DefaultConfig returns a default configuration
func DefaultConfig(dir string) *Config {
	return &Config{
		Dir:         dir,
		BackupCount: 3,
		Logger:      zap.NewNop(),
	}
}

// DataStore keeps one JSON file per key inside a directory. Writes are
// atomic (temp file, fsync, rename) and verified by checksum after the
// rename. Unchanged content is not rewritten.
type DataStore struct {
	dir    string
	config *Config

	mu        sync.Mutex
	checksums map[string]string // checksum of the last write per key
	closed    bool
}

// New creates a new DataStore with default configuration
func New(dir string) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(dir))
}

// NewWithConfig creates a new DataStore with custom configuration
func NewWithConfig(config *Config) (*DataStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &DataStore{
		dir:       config.Dir,
		config:    config,
		checksums: make(map[string]string),
	}, nil
}

// Path returns the file backing key.
func (ds *DataStore) Path(key string) string {
	return filepath.Join(ds.dir, key+".json")
}

// Read returns the stored bytes of key.
func (ds *DataStore) Read(key string) ([]byte, error) {
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("datastore: invalid key %q", key)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return nil, fmt.Errorf("datastore is closed")
	}

	data, err := os.ReadFile(ds.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	ds.checksums[key] = checksum(data)
	return data, nil
}

// Write replaces the stored bytes of key.
func (ds *DataStore) Write(key string, data []byte) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("datastore: invalid key %q", key)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return fmt.Errorf("datastore is closed")
	}

	sum := checksum(data)
	if ds.checksums[key] == sum {
		return nil
	}

	path := ds.Path(key)
	if ds.config.BackupCount > 0 {
		if err := ds.createBackup(path); err != nil {
			ds.config.Logger.Warn("failed to create backup", zap.String("key", key), zap.Error(err))
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	if err := verifyFile(path, sum); err != nil {
		return fmt.Errorf("file verification failed: %w", err)
	}
	ds.checksums[key] = sum
	return nil
}

// Keys lists the stored keys in ascending order.
func (ds *DataStore) Keys() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(ds.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := filepath.Base(m)
		key = key[:len(key)-len(".json")]
		if keyPattern.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close rejects further reads and writes. Every write is already durable.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.closed = true
	return nil
}

// writeFileAtomic performs atomic file write using temporary file and rename
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func verifyFile(path, expected string) error {
	actual, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file for verification: %w", err)
	}
	if checksum(actual) != expected {
		return fmt.Errorf("file checksum mismatch")
	}
	return nil
}

// createBackup copies the current file of a key aside before it is replaced.
func (ds *DataStore) createBackup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	backup := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102_150405.000000000"))
	dst, err := os.Create(backup)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	ds.cleanupOldBackups(path)
	return nil
}

// cleanupOldBackups removes the oldest backups of path beyond BackupCount.
func (ds *DataStore) cleanupOldBackups(path string) {
	matches, err := filepath.Glob(path + ".backup.*")
	if err != nil || len(matches) <= ds.config.BackupCount {
		return
	}
	// Backup names embed a sortable timestamp.
	sort.Strings(matches)
	for _, m := range matches[:len(matches)-ds.config.BackupCount] {
		if err := os.Remove(m); err != nil {
			ds.config.Logger.Warn("failed to remove backup", zap.String("path", m), zap.Error(err))
		}
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
