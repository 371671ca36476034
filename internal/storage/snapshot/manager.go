// Package snapshot provides point-in-time snapshots of RollCall state.
package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/pkg/crypto/adaptive"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("RCALSNAP")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 5
	DefaultRetentionDays  = 7
)

type snapshotHeader struct {
	Version       int    `json:"version"`
	CreatedAt     int64  `json:"created_at"`
	SessionCount  uint64 `json:"session_count"`
	RecordCount   uint64 `json:"record_count"`
	WALLastOffset uint64 `json:"wal_last_offset"`
	Encrypted     bool   `json:"encrypted"`
}

type snapshotSession struct {
	Name      string `json:"name"`
	StartedAt int64  `json:"started_at"`
	EndedAt   int64  `json:"ended_at"`
	ExpiresAt int64  `json:"expires_at"`
	Version   uint64 `json:"version"`
}

type snapshotRecord struct {
	ID            string `json:"id"`
	SessionName   string `json:"session_name"`
	ParticipantID string `json:"participant_id"`
	Token         string `json:"token"`
	TokenTS       int64  `json:"token_ts"`
	SubmittedAt   int64  `json:"submitted_at"`
}

// snapshotPayload is the serialized data block of a snapshot file.
type snapshotPayload struct {
	Sessions []snapshotSession `json:"sessions"`
	Records  []snapshotRecord  `json:"records"`
}

func snapshotSessionFromDomain(s *domain.Session) snapshotSession {
	return snapshotSession{
		Name:      s.Name,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		ExpiresAt: s.ExpiresAt,
		Version:   s.Version,
	}
}

func (s snapshotSession) toDomain() *domain.Session {
	return &domain.Session{
		Name:      s.Name,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		ExpiresAt: s.ExpiresAt,
		Version:   s.Version,
	}
}

func snapshotRecordFromDomain(r *domain.AttendanceRecord) snapshotRecord {
	return snapshotRecord{
		ID:            r.ID,
		SessionName:   r.SessionName,
		ParticipantID: r.ParticipantID,
		Token:         r.Token,
		TokenTS:       r.TokenTS,
		SubmittedAt:   r.SubmittedAt,
	}
}

func (r snapshotRecord) toDomain() *domain.AttendanceRecord {
	return &domain.AttendanceRecord{
		ID:            r.ID,
		SessionName:   r.SessionName,
		ParticipantID: r.ParticipantID,
		Token:         r.Token,
		TokenTS:       r.TokenTS,
		SubmittedAt:   r.SubmittedAt,
	}
}

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNotFound         = errors.New("snapshot: not found")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

// Config configures the snapshot manager.
type Config struct {
	Dir string

	RetentionCount int
	RetentionDays  int

	Cipher adaptive.Cipher
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

type Manager struct {
	cfg    Config
	cipher adaptive.Cipher
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}

	return &Manager{
		cfg:    cfg,
		cipher: cfg.Cipher,
	}, nil
}

// Info contains metadata about a snapshot.
type Info struct {
	ID string `json:"id"`

	// WALLastOffset is the WAL composite offset covered by this snapshot.
	// Format: (segmentID<<32 | offsetWithinSegment).
	WALLastOffset uint64 `json:"wal_last_offset"`

	SessionCount int64  `json:"session_count"`
	RecordCount  int64  `json:"record_count"`
	CreatedAt    int64  `json:"created_at"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	Checksum     string `json:"checksum"`
}

// Create writes a new snapshot file holding the given sessions and records.
func (m *Manager) Create(sessions []*domain.Session, records []*domain.AttendanceRecord, walLastOffset uint64) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := snapshotHeader{
		Version:       headerVersion,
		CreatedAt:     now.UnixMilli(),
		SessionCount:  uint64(len(sessions)),
		RecordCount:   uint64(len(records)),
		WALLastOffset: walLastOffset,
		Encrypted:     m.cipher != nil,
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := writer.Write(hdrLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := writer.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	payload := snapshotPayload{
		Sessions: make([]snapshotSession, 0, len(sessions)),
		Records:  make([]snapshotRecord, 0, len(records)),
	}
	for _, s := range sessions {
		payload.Sessions = append(payload.Sessions, snapshotSessionFromDomain(s))
	}
	for _, r := range records {
		payload.Records = append(payload.Records, snapshotRecordFromDomain(r))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal payload: %w", err)
	}
	if m.cipher != nil {
		data, err = m.cipher.Encrypt(data, nil)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}

	var dataLen [4]byte
	binary.BigEndian.PutUint32(dataLen[:], uint32(len(data)))
	if _, err := writer.Write(dataLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data length: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Finalize checksum trailer (not included in hash).
	sum := hash.Sum(nil)
	if len(sum) != checksumSize {
		file.Close()
		return nil, fmt.Errorf("snapshot: invalid sha256 size: %d", len(sum))
	}
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:            id,
		WALLastOffset: walLastOffset,
		SessionCount:  int64(len(sessions)),
		RecordCount:   int64(len(records)),
		CreatedAt:     now.UnixMilli(),
		Size:          stat.Size(),
		Path:          finalPath,
		Checksum:      hex.EncodeToString(sum),
	}, nil
}

// Load loads state from the latest valid snapshot.
// If the latest snapshot is corrupted, it falls back to older snapshots.
func (m *Manager) Load() ([]*domain.Session, []*domain.AttendanceRecord, *Info, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil, nil, ErrNoSnapshots
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		sessions, records, info, err := m.loadFile(snapshots[i].Path)
		if err == nil {
			return sessions, records, info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return nil, nil, nil, err
	}

	return nil, nil, nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string) ([]*domain.Session, []*domain.AttendanceRecord, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, nil, ErrChecksumMismatch
	}

	// Verify checksum.
	dataLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, dataLen, checksumSize), expected); err != nil {
		return nil, nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, dataLen), dataLen); err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, dataLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, nil, ErrInvalidMagic
	}

	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, nil, nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 {
		return nil, nil, nil, fmt.Errorf("snapshot: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, nil, nil, err
	}

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(br, dataLenBuf[:]); err != nil {
		return nil, nil, nil, err
	}
	dataSize := binary.BigEndian.Uint32(dataLenBuf[:])
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, nil, nil, err
	}

	if hdr.Encrypted {
		if m.cipher == nil {
			return nil, nil, nil, fmt.Errorf("snapshot: encrypted snapshot requires cipher")
		}
		plain, err := m.cipher.Decrypt(data, nil)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("snapshot: decrypt: %w", err)
		}
		data = plain
	} else if m.cipher != nil {
		return nil, nil, nil, fmt.Errorf("snapshot: expected encrypted snapshot")
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, nil, fmt.Errorf("snapshot: unmarshal payload: %w", err)
	}

	sessions := make([]*domain.Session, 0, len(payload.Sessions))
	for _, s := range payload.Sessions {
		sessions = append(sessions, s.toDomain())
	}
	records := make([]*domain.AttendanceRecord, 0, len(payload.Records))
	for _, r := range payload.Records {
		records = append(records, r.toDomain())
	}

	info := &Info{
		ID:            strings.TrimSuffix(filepath.Base(path), fileExtension),
		WALLastOffset: hdr.WALLastOffset,
		SessionCount:  int64(hdr.SessionCount),
		RecordCount:   int64(hdr.RecordCount),
		CreatedAt:     hdr.CreatedAt,
		Size:          stat.Size(),
		Path:          path,
		Checksum:      hex.EncodeToString(expected),
	}

	return sessions, records, info, nil
}

// List lists snapshot files (metadata only).
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune applies the retention policy and deletes old snapshots.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= 1 {
		return nil
	}

	keep := make(map[string]struct{}, len(infos))

	// Keep last RetentionCount.
	if m.cfg.RetentionCount > 0 {
		start := len(infos) - m.cfg.RetentionCount
		if start < 0 {
			start = 0
		}
		for _, info := range infos[start:] {
			keep[info.Path] = struct{}{}
		}
	}

	// Keep those within RetentionDays based on mtime.
	if m.cfg.RetentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(m.cfg.RetentionDays) * 24 * time.Hour)
		for _, info := range infos {
			st, err := os.Stat(info.Path)
			if err != nil {
				continue
			}
			if st.ModTime().After(cutoff) {
				keep[info.Path] = struct{}{}
			}
		}
	}

	// Always keep at least the newest.
	keep[infos[len(infos)-1].Path] = struct{}{}

	for _, info := range infos {
		if _, ok := keep[info.Path]; ok {
			continue
		}
		_ = os.Remove(info.Path)
	}
	return nil
}

func (m *Manager) generateID(t time.Time) string {
	ts := t.Format("20060102150405")
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix+ts+"-") || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		seq++
	}

	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
