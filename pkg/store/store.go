package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// TunnelStatus is the persisted state of a tunnel descriptor.
type TunnelStatus string

const (
	StatusActive TunnelStatus = "active"
	StatusClosed TunnelStatus = "closed"
)

// TunnelRecord is the durable descriptor of one tunnel, one file per source.
// A restarted process must re-validate liveness before trusting a record:
// the forwarding task does not survive a restart.
type TunnelRecord struct {
	SourceID    string       `json:"source_id"`
	SessionID   string       `json:"session_id"`
	BastionHost string       `json:"bastion_host"`
	TargetHost  string       `json:"target_host"`
	TargetPort  int          `json:"target_port"`
	LocalPort   int          `json:"local_port"`
	CreatedAt   time.Time    `json:"created_at"`
	Status      TunnelStatus `json:"status"`
}

// Store is the file-based persistence layer for tunnel descriptors and
// connection profiles. It keeps no in-process cache: every read goes to disk.
type Store struct {
	tunnelsDir  string
	profilesDir string
}

// New creates the store directories if needed.
func New(tunnelsDir, profilesDir string) (*Store, error) {
	for _, dir := range []string{tunnelsDir, profilesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}
	return &Store{tunnelsDir: tunnelsDir, profilesDir: profilesDir}, nil
}

func (s *Store) tunnelPath(sourceID string) string {
	return filepath.Join(s.tunnelsDir, sourceID+".json")
}

// ProfilePath returns where the connection profile for a source lives.
func (s *Store) ProfilePath(sourceID string) string {
	return filepath.Join(s.profilesDir, sourceID+".yaml")
}

// SaveTunnelRecord writes the descriptor atomically.
func (s *Store) SaveTunnelRecord(rec TunnelRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal tunnel record")
	}
	return writeAtomic(s.tunnelPath(rec.SourceID), data)
}

// LoadTunnelRecord reads the descriptor for a source. The second return is
// false when no descriptor exists.
func (s *Store) LoadTunnelRecord(sourceID string) (TunnelRecord, bool, error) {
	data, err := os.ReadFile(s.tunnelPath(sourceID))
	if os.IsNotExist(err) {
		return TunnelRecord{}, false, nil
	}
	if err != nil {
		return TunnelRecord{}, false, errors.Wrapf(err, "read tunnel record %s", sourceID)
	}
	var rec TunnelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TunnelRecord{}, false, errors.Wrapf(err, "parse tunnel record %s", sourceID)
	}
	return rec, true, nil
}

// DeleteTunnelRecord removes the descriptor. Deleting a missing descriptor is
// not an error.
func (s *Store) DeleteTunnelRecord(sourceID string) error {
	err := os.Remove(s.tunnelPath(sourceID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete tunnel record %s", sourceID)
	}
	return nil
}

// ListTunnelRecords returns every persisted descriptor.
func (s *Store) ListTunnelRecords() ([]TunnelRecord, error) {
	matches, err := filepath.Glob(filepath.Join(s.tunnelsDir, "*.json"))
	if err != nil {
		return nil, err
	}
	var records []TunnelRecord
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec TunnelRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveProfile writes a rendered connection profile atomically: a reader never
// observes a half-written profile.
func (s *Store) SaveProfile(sourceID string, data []byte) error {
	return writeAtomic(s.ProfilePath(sourceID), data)
}

// LoadProfile reads the raw profile bytes for a source; false when absent.
func (s *Store) LoadProfile(sourceID string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.ProfilePath(sourceID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read profile %s", sourceID)
	}
	return data, true, nil
}

// ProfileExists reports whether a profile file is present.
func (s *Store) ProfileExists(sourceID string) bool {
	_, err := os.Stat(s.ProfilePath(sourceID))
	return err == nil
}

// DeleteProfile removes the profile. Missing profiles are not an error.
func (s *Store) DeleteProfile(sourceID string) error {
	err := os.Remove(s.ProfilePath(sourceID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete profile %s", sourceID)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory then renames.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}
