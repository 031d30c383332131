package ledger

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
)

// Repository defines persistence operations for installed versions.
type Repository interface {
	Load(ctx context.Context) (game.Versions, error)
	Save(ctx context.Context, versions game.Versions) error
}

// FileRepository persists installed versions to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON ledger.
	path string
	// channels are written out on every save, null when not installed.
	channels []game.Channel
	// mu protects concurrent access to the ledger file.
	mu sync.Mutex
}

// ErrNotFound is returned when the ledger file does not exist yet.
var ErrNotFound = errors.New("ledger not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string, channels []game.Channel) *FileRepository {
	return &FileRepository{
		path:     filepath.Clean(path),
		channels: channels,
	}
}

// Path returns the ledger file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the ledger from disk. Keys outside the known channels are ignored.
func (r *FileRepository) Load(_ context.Context) (game.Versions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var document map[string]*string
	if err = json.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode ledger file: %w", err)
	}

	versions := make(game.Versions, len(r.channels))

	for _, ch := range r.channels {
		if tag := document[string(ch)]; tag != nil && *tag != "" {
			versions[ch] = *tag
		}
	}

	return versions, nil
}

// Save replaces the ledger file with the given versions.
func (r *FileRepository) Save(_ context.Context, versions game.Versions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document := make(map[string]*string, len(r.channels))

	for _, ch := range r.channels {
		if tag, ok := versions.Get(ch); ok {
			document[string(ch)] = &tag
		} else {
			document[string(ch)] = nil
		}
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	// Apply swaps files by rename, so the target has to exist first.
	if _, err = os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(r.path, nil, config.DefaultFilePermissions); err != nil {
			return fmt.Errorf("create ledger file: %w", err)
		}
	}

	checksum := sha512.Sum512(data)
	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   checksum[:],
		Hash:       crypto.SHA512,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}

	return nil
}
