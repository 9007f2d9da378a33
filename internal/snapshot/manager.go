package snapshot

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
	"github.com/shehryarbajwa/devtools-inspector/pkg/models"
)

// ErrNotFound is returned for unknown snapshot ids.
var ErrNotFound = errors.New("snapshot not found")

// Source is a session able to take heap snapshots. Chunk events must be
// delivered to fn before the takeHeapSnapshot response resolves.
// *session.Inspector implements it.
type Source interface {
	SubscribeFunc(fn func(devtools.Event)) (cancel func())
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Manager handles heap snapshot persistence
type Manager struct {
	snapshots sync.Map // snapshotID -> *models.Snapshot
	storePath string   // Base path for storing snapshots
}

// NewManager creates a new snapshot manager
func NewManager(storePath string) (*Manager, error) {
	// Create storage directory if it doesn't exist
	if err := os.MkdirAll(storePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Manager{
		storePath: storePath,
	}, nil
}

// chunkWriter streams snapshot chunks into a gzip file
type chunkWriter struct {
	mu   sync.Mutex
	gz   *gzip.Writer
	size int64
	err  error
}

func (w *chunkWriter) handle(ev devtools.Event) {
	if ev.Method != devtools.EventNameHeapSnapshotChunk {
		return
	}
	var p struct {
		Chunk string `json:"chunk"`
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return
	}
	if err := json.Unmarshal(ev.Params, &p); err != nil {
		w.err = fmt.Errorf("failed to decode chunk: %w", err)
		return
	}
	n, err := io.WriteString(w.gz, p.Chunk)
	w.size += int64(n)
	if err != nil {
		w.err = err
	}
}

// Capture takes a heap snapshot of src and stores it compressed.
func (m *Manager) Capture(ctx context.Context, sessionID string, src Source) (*models.Snapshot, error) {
	id := uuid.New().String()
	path := filepath.Join(m.storePath, fmt.Sprintf("%s.heapsnapshot.gz", id))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}

	w := &chunkWriter{gz: gzip.NewWriter(file)}
	cancel := src.SubscribeFunc(w.handle)

	_, reqErr := src.Request(ctx, devtools.MethodHeapProfilerTakeHeapSnapshot, map[string]bool{
		"reportProgress": false,
	})
	cancel()

	w.mu.Lock()
	writeErr := w.err
	size := w.size
	w.mu.Unlock()

	closeErr := errors.Join(w.gz.Close(), file.Close())

	if err := errors.Join(reqErr, writeErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to capture heap snapshot: %w", err)
	}

	snap := &models.Snapshot{
		ID:        id,
		SessionID: sessionID,
		Size:      size,
		CreatedAt: time.Now(),
		DataPath:  path,
	}
	m.snapshots.Store(id, snap)

	log.Printf("📸 Captured heap snapshot %s for session %s (%d bytes)", id[:8], sessionID, size)
	return snap, nil
}

// Get retrieves a snapshot by ID
func (m *Manager) Get(id string) (*models.Snapshot, error) {
	value, ok := m.snapshots.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return value.(*models.Snapshot), nil
}

// List returns the snapshots of a session, oldest first. An empty
// sessionID lists every snapshot.
func (m *Manager) List(sessionID string) []*models.Snapshot {
	snapshots := []*models.Snapshot{}

	m.snapshots.Range(func(key, value interface{}) bool {
		snap := value.(*models.Snapshot)
		if sessionID == "" || snap.SessionID == sessionID {
			snapshots = append(snapshots, snap)
		}
		return true
	})

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Open returns the decompressed snapshot JSON.
func (m *Manager) Open(id string) (io.ReadCloser, error) {
	snap, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(snap.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return &snapshotReader{Reader: gzReader, file: file}, nil
}

type snapshotReader struct {
	*gzip.Reader
	file *os.File
}

func (r *snapshotReader) Close() error {
	return errors.Join(r.Reader.Close(), r.file.Close())
}

// Delete removes a snapshot and its data
func (m *Manager) Delete(id string) error {
	snap, err := m.Get(id)
	if err != nil {
		return err
	}

	if err := os.Remove(snap.DataPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot data: %w", err)
	}

	m.snapshots.Delete(id)

	return nil
}
