package snapshot

// ============================================================================
// Snapshot manager
// 1. Serializes the whole board into one JSON document
// 2. Writes atomically (temp file + rename) so a crash never leaves a torn file
// 3. Verifies the schema version on load
// ============================================================================

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/storage/memory"
	"github.com/ChuLiYu/questboard/pkg/types"
)

var (
	ErrCorruptedSnapshot   = errors.New("snapshot file is corrupted")
	ErrIncompatibleVersion = errors.New("snapshot schema version is incompatible")
)

// Manager reads and writes one snapshot file.
type Manager struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewManager creates a manager for the snapshot at path.
func NewManager(path string) *Manager {
	return &Manager{path: path, now: time.Now}
}

// Write atomically replaces the snapshot with data.
func (m *Manager) Write(data types.SnapshotData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(data)
}

func (m *Manager) write(data types.SnapshotData) error {
	data.SchemaVer = memory.SchemaVersion

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot directory")
		}
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return errors.Wrap(err, "write temp snapshot")
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "rename snapshot")
	}
	return nil
}

// Load reads the snapshot. A missing file yields an empty board.
func (m *Manager) Load() (types.SnapshotData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.SnapshotData{
				Jobs:      make(map[types.JobID]*types.Job),
				SchemaVer: memory.SchemaVersion,
			}, nil
		}
		return types.SnapshotData{}, errors.Wrap(err, "read snapshot")
	}

	var data types.SnapshotData
	if err := json.Unmarshal(raw, &data); err != nil {
		return types.SnapshotData{}, errors.Mark(
			errors.Wrapf(err, "decode %s", m.path), ErrCorruptedSnapshot)
	}
	if data.SchemaVer != memory.SchemaVersion {
		return types.SnapshotData{}, errors.Mark(
			errors.Newf("got schema %d, want %d", data.SchemaVer, memory.SchemaVersion),
			ErrIncompatibleVersion)
	}
	if data.Jobs == nil {
		data.Jobs = make(map[types.JobID]*types.Job)
	}
	return data, nil
}

// Exists reports whether the snapshot file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the snapshot file path.
func (m *Manager) Path() string {
	return m.path
}

// WriteWithBackup copies the current snapshot aside before writing data and
// keeps at most keepBackups of those copies. The live file is only replaced
// by the final rename, so a failed write leaves it intact.
func (m *Manager) WriteWithBackup(data types.SnapshotData, keepBackups int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, err := os.ReadFile(m.path); err == nil {
		backup := m.path + "." + m.now().Format("20060102_150405.000000000")
		if err := os.WriteFile(backup, raw, 0o644); err != nil {
			return errors.Wrap(err, "backup old snapshot")
		}
		if err := m.pruneBackups(keepBackups); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "read snapshot for backup")
	}
	return m.write(data)
}

// Backups lists backup files, oldest first.
func (m *Manager) Backups() ([]string, error) {
	matches, err := filepath.Glob(m.path + ".2*")
	if err != nil {
		return nil, errors.Wrap(err, "list snapshot backups")
	}
	sort.Strings(matches)
	return matches, nil
}

func (m *Manager) pruneBackups(keep int) error {
	backups, err := m.Backups()
	if err != nil {
		return err
	}
	for len(backups) > keep && len(backups) > 0 {
		if err := os.Remove(backups[0]); err != nil {
			return errors.Wrap(err, "remove old snapshot backup")
		}
		backups = backups[1:]
	}
	return nil
}
