package relay

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DebounceStore remembers when the last notification for a pairing was
// sent, across relay process invocations.
type DebounceStore interface {
	LastSent(pairingID string) (time.Time, bool)
	MarkSent(pairingID string, at time.Time) error
}

// FileDebounce keeps the timestamp in a small file under the system
// temp directory. The relay is a new process per hook invocation, so
// the window has to survive process exit.
type FileDebounce struct {
	dir string
}

func NewFileDebounce() *FileDebounce {
	return &FileDebounce{dir: os.TempDir()}
}

func (f *FileDebounce) path(pairingID string) string {
	return filepath.Join(f.dir, "claude-watch-last-notification-"+pairingID)
}

func (f *FileDebounce) LastSent(pairingID string) (time.Time, bool) {
	data, err := os.ReadFile(f.path(pairingID))
	if err != nil {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func (f *FileDebounce) MarkSent(pairingID string, at time.Time) error {
	return os.WriteFile(f.path(pairingID), []byte(strconv.FormatInt(at.Unix(), 10)), 0o600)
}

// memoryDebounce is an in-process DebounceStore for tests.
type memoryDebounce struct {
	sent map[string]time.Time
}

func newMemoryDebounce() *memoryDebounce {
	return &memoryDebounce{sent: make(map[string]time.Time)}
}

func (m *memoryDebounce) LastSent(pairingID string) (time.Time, bool) {
	t, ok := m.sent[pairingID]
	return t, ok
}

func (m *memoryDebounce) MarkSent(pairingID string, at time.Time) error {
	m.sent[pairingID] = at
	return nil
}
