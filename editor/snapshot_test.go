package editor

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFileRoundTrip(t *testing.T) {
	s := newTestState(t, 6, 6)
	mustLoad(t, s, typedef.PixelData{"1": {pt(0, 0), pt(5, 5)}, "2": {pt(2, 3)}})
	s.SetRegionNames(map[typedef.RegionID]string{"1": "Aldmoor"})
	want := viewOf(s)

	path := filepath.Join(t.TempDir(), "map"+SnapshotExt)
	require.NoError(t, SaveSnapshotFile(path, s.Snapshot()))

	restored := newTestState(t, 6, 6)
	snap, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, want, viewOf(restored))
	requireConsistent(t, restored)
}

func TestRestoreRejectsOtherMapSize(t *testing.T) {
	s := newTestState(t, 6, 6)
	mustLoad(t, s, typedef.PixelData{"1": {pt(0, 0)}})
	snap := s.Snapshot()

	other := newTestState(t, 7, 6)
	mustLoad(t, other, typedef.PixelData{"9": {pt(6, 5)}})
	err := other.Restore(snap)
	assert.ErrorIs(t, err, ErrMalformedPixelData)
	assert.Equal(t, typedef.RegionID("9"), other.OwnerAt(6, 5))
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("plain text, not lz4")))
	assert.ErrorIs(t, err, ErrMalformedPixelData)

	compressed, err := compressLZ4([]byte(`{"type":"something_else","version":"1.0"}`))
	require.NoError(t, err)
	_, err = ReadSnapshot(bytes.NewReader(compressed))
	assert.ErrorIs(t, err, ErrMalformedPixelData)
}
