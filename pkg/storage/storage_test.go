package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirVolume_Present(t *testing.T) {
	dir := t.TempDir()
	mount := filepath.Join(dir, "usb0")

	vol := NewDirVolume(mount)
	assert.False(t, vol.Present())

	require.NoError(t, os.Mkdir(mount, 0755))
	assert.True(t, vol.Present())

	require.NoError(t, os.Remove(mount))
	assert.False(t, vol.Present())
}

func TestDirVolume_PresentRejectsPlainFile(t *testing.T) {
	dir := t.TempDir()
	mount := filepath.Join(dir, "usb0")
	require.NoError(t, os.WriteFile(mount, []byte("x"), 0644))

	vol := NewDirVolume(mount)
	assert.False(t, vol.Present())
}

func TestDirVolume_ExistsAndOpenAppend(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	assert.False(t, vol.Exists("T6062700.CSV"))

	f, err := vol.OpenAppend("T6062700.CSV")
	require.NoError(t, err)
	_, err = f.Write([]byte("header\n"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	assert.True(t, vol.Exists("T6062700.CSV"))

	// Append keeps existing content.
	f, err = vol.OpenAppend("T6062700.CSV")
	require.NoError(t, err)
	_, err = f.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(vol.Path(), "T6062700.CSV"))
	require.NoError(t, err)
	assert.Equal(t, "header\nline\n", string(data))
}

func TestDirVolume_OpenAppendRejectsPaths(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	for _, name := range []string{"", "a/b.csv", `a\b.csv`, "../escape.csv"} {
		_, err := vol.OpenAppend(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestMonitor_Transitions(t *testing.T) {
	dir := t.TempDir()
	mount := filepath.Join(dir, "usb0")
	vol := NewDirVolume(mount)
	mon := NewMonitor(vol, time.Second)

	t0 := time.Date(2026, 6, 27, 17, 0, 0, 0, time.UTC)

	// Absent at start: first poll probes but sees no change.
	assert.Equal(t, Unchanged, mon.Poll(t0))
	assert.False(t, mon.Present())

	// Medium appears, but the next poll is inside the check interval.
	require.NoError(t, os.Mkdir(mount, 0755))
	assert.Equal(t, Unchanged, mon.Poll(t0.Add(500*time.Millisecond)))
	assert.False(t, mon.Present(), "cached state holds between probes")

	assert.Equal(t, Inserted, mon.Poll(t0.Add(time.Second)))
	assert.True(t, mon.Present())

	// Stable presence: no events.
	assert.Equal(t, Unchanged, mon.Poll(t0.Add(2*time.Second)))

	// Medium yanked.
	require.NoError(t, os.Remove(mount))
	assert.Equal(t, Removed, mon.Poll(t0.Add(3*time.Second)))
	assert.False(t, mon.Present())
}

func TestAllocateName_Format(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	name := AllocateName(2026, time.June, 27, vol)
	assert.Equal(t, "T6062700.CSV", name)

	// 8.3: eight name characters, three-character extension, uppercase.
	parts := strings.SplitN(name, ".", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 8)
	assert.Len(t, parts[1], 3)
	assert.Equal(t, strings.ToUpper(name), name)
}

func TestAllocateName_UnknownDate(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	name := AllocateName(0, 0, 0, vol)
	assert.Equal(t, "T0000000.CSV", name)
}

func TestAllocateName_SkipsExisting(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	for _, existing := range []string{"T6062700.CSV", "T6062701.CSV"} {
		f, err := vol.OpenAppend(existing)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	name := AllocateName(2026, time.June, 27, vol)
	assert.Equal(t, "T6062702.CSV", name)
	assert.False(t, vol.Exists(name))
}

func TestAllocateName_ExhaustionFallsBackToMax(t *testing.T) {
	vol := NewDirVolume(t.TempDir())

	for seq := 0; seq < 100; seq++ {
		f, err := vol.OpenAppend(AllocateName(2026, time.June, 27, vol))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	// All hundred taken: the maximal sequence name is returned even though
	// it collides.
	name := AllocateName(2026, time.June, 27, vol)
	assert.Equal(t, "T6062799.CSV", name)
	assert.True(t, vol.Exists(name))
}
