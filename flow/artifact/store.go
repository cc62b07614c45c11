// Package artifact persists documents derived from workflow steps and
// tracks which retrieval links have already been announced to the caller.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the external artifact storage boundary. Implementations write
// a document under a thread/session scope and hand back a retrievable
// URL.
type Store interface {
	Write(ctx context.Context, threadID, sessionID, relPath string, content []byte) (string, error)
	Read(ctx context.Context, threadID, sessionID, relPath string) ([]byte, error)

	// SessionURL returns the link to a session's whole artifact bundle.
	SessionURL(threadID, sessionID string) string
}

// MemStore keeps artifacts in memory. For tests and dev runs.
type MemStore struct {
	baseURL string

	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemStore creates a MemStore serving URLs under baseURL.
func NewMemStore(baseURL string) *MemStore {
	return &MemStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		files:   make(map[string][]byte),
	}
}

// Write implements Store.
func (m *MemStore) Write(ctx context.Context, threadID, sessionID, relPath string, content []byte) (string, error) {
	key := threadID + "/" + sessionID + "/" + relPath
	data := make([]byte, len(content))
	copy(data, content)

	m.mu.Lock()
	m.files[key] = data
	m.mu.Unlock()

	return fmt.Sprintf("%s/thread/%s/session/%s/file/%s", m.baseURL, threadID, sessionID, relPath), nil
}

// Read implements Store.
func (m *MemStore) Read(ctx context.Context, threadID, sessionID, relPath string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.files[threadID+"/"+sessionID+"/"+relPath]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact: %s/%s/%s not found", threadID, sessionID, relPath)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// SessionURL implements Store.
func (m *MemStore) SessionURL(threadID, sessionID string) string {
	return fmt.Sprintf("%s/thread/%s/session/%s", m.baseURL, threadID, sessionID)
}

// Len reports the number of stored files.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// FSStore writes artifacts to the local filesystem under root, mirroring
// the thread/session layout the URLs expose.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates an FSStore rooted at root, serving URLs under
// baseURL.
func NewFSStore(root, baseURL string) *FSStore {
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Write implements Store.
func (f *FSStore) Write(ctx context.Context, threadID, sessionID, relPath string, content []byte) (string, error) {
	dir := filepath.Join(f.root, threadID, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: mkdir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, relPath), content, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write: %w", err)
	}
	return fmt.Sprintf("%s/thread/%s/session/%s/file/%s", f.baseURL, threadID, sessionID, relPath), nil
}

// Read implements Store.
func (f *FSStore) Read(ctx context.Context, threadID, sessionID, relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, threadID, sessionID, relPath))
	if err != nil {
		return nil, fmt.Errorf("artifact: read: %w", err)
	}
	return data, nil
}

// SessionURL implements Store.
func (f *FSStore) SessionURL(threadID, sessionID string) string {
	return fmt.Sprintf("%s/thread/%s/session/%s", f.baseURL, threadID, sessionID)
}
