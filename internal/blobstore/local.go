package blobstore

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"callspool/internal/logging"
)

const (
	metaSuffix = ".meta"
	trashDir   = ".trash"
)

// Local is a filesystem-backed Store rooted at a spool directory with one
// subdirectory per lifecycle location. Blob descriptions live in a sidecar
// file next to the blob and travel with it on every move.
type Local struct {
	root   string
	logger *slog.Logger

	mu sync.Mutex

	// rename is swappable so tests can force the fallback path.
	rename func(oldPath, newPath string) error
}

// NewLocal creates the location directories under root and returns the store.
func NewLocal(root string, logger *slog.Logger) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("spool root is required")
	}
	for _, location := range Locations() {
		if err := os.MkdirAll(filepath.Join(root, string(location)), 0o755); err != nil {
			return nil, fmt.Errorf("create location %s: %w", location, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, trashDir), 0o755); err != nil {
		return nil, fmt.Errorf("create trash directory: %w", err)
	}
	return &Local{
		root:   root,
		logger: logging.NewComponentLogger(logger, "blobstore"),
		rename: os.Rename,
	}, nil
}

func (l *Local) dir(location Location) string {
	return filepath.Join(l.root, string(location))
}

func (l *Local) blobPath(location Location, name string) string {
	return filepath.Join(l.dir(location), name)
}

// Save writes a new blob into the location, replacing any same-named blob.
func (l *Local) Save(name string, location Location, r io.Reader) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	out, err := os.OpenFile(l.blobPath(location, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create blob %s: %w", name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = os.Remove(l.blobPath(location, name))
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close blob %s: %w", name, err)
	}
	return nil
}

// List returns the blobs currently in a location.
func (l *Local) List(location Location) ([]Blob, error) {
	entries, err := os.ReadDir(l.dir(location))
	if err != nil {
		return nil, fmt.Errorf("list location %s: %w", location, err)
	}

	var blobs []Blob
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), metaSuffix) || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		blobs = append(blobs, Blob{
			Name:        entry.Name(),
			Location:    location,
			Size:        info.Size(),
			Description: l.readDescription(location, entry.Name()),
		})
	}
	return blobs, nil
}

// Find returns the named blob in a location, or nil, nil when absent.
func (l *Local) Find(location Location, name string) (*Blob, error) {
	info, err := os.Stat(l.blobPath(location, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat blob %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("blob path %s is a directory", name)
	}
	return &Blob{
		Name:        name,
		Location:    location,
		Size:        info.Size(),
		Description: l.readDescription(location, name),
	}, nil
}

// FindByRecordingID scans the given locations in order for a blob whose name
// embeds the recording id.
func (l *Local) FindByRecordingID(recordingID string, locations ...Location) (*Blob, error) {
	recordingID = strings.TrimSpace(recordingID)
	if recordingID == "" {
		return nil, errors.New("recording id is required")
	}
	if len(locations) == 0 {
		locations = Locations()
	}
	for _, location := range locations {
		blobs, err := l.List(location)
		if err != nil {
			return nil, err
		}
		for _, blob := range blobs {
			if id, ok := RecordingIDFromName(blob.Name); ok && id == recordingID {
				found := blob
				return &found, nil
			}
		}
	}
	return nil, nil
}

// Move relocates a blob between locations with a direct rename only.
func (l *Local) Move(name string, from, to Location) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(name, from, to)
}

func (l *Local) moveLocked(name string, from, to Location) error {
	src := l.blobPath(from, name)
	dst := l.blobPath(to, name)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source blob %s in %s: %w", name, from, err)
	}
	if err := l.rename(src, dst); err != nil {
		return fmt.Errorf("move blob %s from %s to %s: %w", name, from, to, err)
	}
	// Sidecar travels with the blob; a missing sidecar is fine.
	if err := os.Rename(src+metaSuffix, dst+metaSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("failed to move blob sidecar",
			logging.String("blob", name),
			logging.Error(err))
	}
	return nil
}

// MoveWithFallback relocates a blob, falling back to copy-verify-trash when
// the direct move fails. Only failure of both paths is an error.
func (l *Local) MoveWithFallback(name string, from, to Location, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.moveLocked(name, from, to); err == nil {
		if note != "" {
			if noteErr := l.appendNoteLocked(name, to, note); noteErr != nil {
				l.logger.Warn("moved blob but failed to append note",
					logging.String("blob", name),
					logging.Error(noteErr))
			}
		}
		return nil
	}

	src := l.blobPath(from, name)
	dst := l.blobPath(to, name)

	if err := copyVerified(src, dst); err != nil {
		return fmt.Errorf("fallback copy of %s from %s to %s: %w", name, from, to, err)
	}

	description := l.readDescription(from, name)
	description = AppendMark(description, note)
	description = AppendMark(description, MarkCopyRecovered)
	if err := l.writeDescription(to, name, description); err != nil {
		l.logger.Warn("fallback copy succeeded but sidecar write failed",
			logging.String("blob", name),
			logging.Error(err))
	}

	// The authoritative copy now exists at the destination; losing the trash
	// step only leaves a duplicate behind (duplicate-over-loss).
	if err := l.trash(src); err != nil {
		l.logger.Warn("failed to trash original after fallback copy",
			logging.String("blob", name),
			logging.String(logging.FieldLocation, string(from)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "duplicate blob remains in the source location"))
	} else {
		_ = os.Remove(src + metaSuffix)
	}
	return nil
}

// AppendNote appends a mark to the blob's description in place.
func (l *Local) AppendNote(name string, location Location, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendNoteLocked(name, location, note)
}

func (l *Local) appendNoteLocked(name string, location Location, note string) error {
	description := l.readDescription(location, name)
	return l.writeDescription(location, name, AppendMark(description, note))
}

func (l *Local) readDescription(location Location, name string) string {
	data, err := os.ReadFile(l.blobPath(location, name) + metaSuffix)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (l *Local) writeDescription(location Location, name, description string) error {
	path := l.blobPath(location, name) + metaSuffix
	if err := os.WriteFile(path, []byte(description+"\n"), 0o644); err != nil {
		return fmt.Errorf("write sidecar for %s: %w", name, err)
	}
	return nil
}

func (l *Local) trash(src string) error {
	dst := filepath.Join(l.root, trashDir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return os.Remove(src)
}

// copyVerified streams src to dst with size and SHA256 verification and
// removes dst on mismatch, so a torn fallback copy never masquerades as a
// completed move.
func copyVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
