package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/folio-dev/folio/internal/model"
)

const maxAppendAttempts = 3

// CSVStore keeps each partition in <dir>/<Category>.csv.
type CSVStore struct {
	dir string
	mu  sync.Mutex

	// beforeRename runs after the new file is written and before the version
	// check. Tests use it to simulate a concurrent writer.
	beforeRename func()
}

// NewCSVStore creates a CSVStore rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Dir returns the directory holding the partition files.
func (s *CSVStore) Dir() string { return s.dir }

// Path returns the file of a partition.
func (s *CSVStore) Path(category model.Category) string {
	return filepath.Join(s.dir, string(category)+".csv")
}

// Read returns the rows of a partition.
func (s *CSVStore) Read(_ context.Context, category model.Category) ([]model.Record, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	recs, _, err := s.readVersioned(category)
	return recs, err
}

// Append reads the partition, adds rec and writes the whole partition back.
// The write lands only if the file is unchanged since it was read; otherwise
// the append is retried, and ErrConflict is returned after the last attempt.
func (s *CSVStore) Append(_ context.Context, category model.Category, rec model.Record) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		recs, version, err := s.readVersioned(category)
		if err != nil && !IsNotFound(err) {
			return err
		}
		recs = append(recs, rec)

		tmp, err := s.writeTemp(category, recs)
		if err != nil {
			return err
		}

		if s.beforeRename != nil {
			s.beforeRename()
		}

		current, err := s.version(category)
		if err != nil {
			os.Remove(tmp)
			return err
		}
		if current != version {
			os.Remove(tmp)
			continue
		}

		if err := os.Rename(tmp, s.Path(category)); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("replacing %s: %w", category, err)
		}
		return nil
	}
	return fmt.Errorf("appending to %s: %w", category, ErrConflict)
}

// Create writes a header-only partition file when none exists.
func (s *CSVStore) Create(_ context.Context, category model.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	f, err := os.OpenFile(s.Path(category), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", category, err)
	}
	defer f.Close()

	if err := WriteRecords(f, nil); err != nil {
		return fmt.Errorf("writing %s: %w", category, err)
	}
	return nil
}

func (s *CSVStore) readVersioned(category model.Category) ([]model.Record, string, error) {
	path := s.Path(category)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%s: %w", category, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("opening ledger %s: %w", path, err)
	}

	recs, err := ReadRecords(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("reading ledger %s: %w", path, err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, digest(data), nil
}

// version is the content digest of a partition, "" when it does not exist.
func (s *CSVStore) version(category model.Category) (string, error) {
	data, err := os.ReadFile(s.Path(category))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", category, err)
	}
	return digest(data), nil
}

func (s *CSVStore) writeTemp(category model.Category, recs []model.Record) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+string(category)+"-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if err := WriteRecords(f, recs); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", category, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
