package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/pierrec/lz4"
	"github.com/sirupsen/logrus"
)

const (
	snapshotType    = "pixel_snapshot"
	snapshotVersion = "1.0"

	// SnapshotExt is the file extension used for snapshot files.
	SnapshotExt = ".lz4"
)

// Snapshot is the on-disk form of the editor model. Undo history is not part of it.
type Snapshot struct {
	Type      string                      `json:"type"`
	Version   string                      `json:"version"`
	Timestamp time.Time                   `json:"timestamp"`
	Width     int                         `json:"width"`
	Height    int                         `json:"height"`
	Pixels    typedef.PixelData           `json:"pixels"`
	Names     map[typedef.RegionID]string `json:"names,omitempty"`
}

// Snapshot captures the current regions and names.
func (s *State) Snapshot() *Snapshot {
	names := make(map[typedef.RegionID]string)
	for id, r := range s.regions {
		if r.name != "" {
			names[id] = r.name
		}
	}
	return &Snapshot{
		Type:      snapshotType,
		Version:   snapshotVersion,
		Timestamp: time.Now(),
		Width:     s.width,
		Height:    s.height,
		Pixels:    s.Export(),
		Names:     names,
	}
}

// Restore loads a snapshot. A snapshot for another map size is rejected and leaves the model unchanged.
func (s *State) Restore(snap *Snapshot) error {
	if snap.Width != s.width || snap.Height != s.height {
		return fmt.Errorf("%w: snapshot is %dx%d, map is %dx%d",
			ErrMalformedPixelData, snap.Width, snap.Height, s.width, s.height)
	}
	if err := s.Load(snap.Pixels); err != nil {
		return err
	}
	s.SetRegionNames(snap.Names)
	return nil
}

// WriteSnapshot encodes snap as LZ4-compressed JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	compressed, err := compressLZ4(jsonData)
	if err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes an LZ4-compressed JSON snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	jsonData, err := decompressLZ4(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress snapshot: %v", ErrMalformedPixelData, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(jsonData, &snap); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal snapshot: %v", ErrMalformedPixelData, err)
	}
	if snap.Type != snapshotType {
		return nil, fmt.Errorf("%w: invalid snapshot type %q", ErrMalformedPixelData, snap.Type)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %q", ErrMalformedPixelData, snap.Version)
	}
	return &snap, nil
}

// SaveSnapshotFile writes snap to path.
func SaveSnapshotFile(path string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"component": "snapshot",
		"path":      path,
		"regions":   len(snap.Pixels),
		"bytes":     buf.Len(),
	}).Info("snapshot saved")
	return nil
}

// LoadSnapshotFile reads a snapshot from path.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
