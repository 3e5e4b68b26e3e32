package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRotation_BucketSwitch(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath: filepath.Join(directory, "app.log"),
		Trigger:  TriggerDate,
	})

	require.NoError(t, writer.WriteEntry([]byte("before midnight\n"), time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)))
	require.NoError(t, writer.WriteEntry([]byte("after midnight\n"), time.Date(2024, 1, 16, 0, 1, 0, 0, time.UTC)))

	first, err := os.ReadFile(filepath.Join(directory, "app-2024-01-15.log"))
	require.NoError(t, err)
	assert.Equal(t, "before midnight\n", string(first))

	second, err := os.ReadFile(filepath.Join(directory, "app-2024-01-16.log"))
	require.NoError(t, err)
	assert.Equal(t, "after midnight\n", string(second))
}

// Multiple writes on the same calendar day reuse one stream.
func TestDateRotation_SameDayIdempotent(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath: filepath.Join(directory, "app.log"),
		Trigger:  TriggerDate,
	})

	timestamp := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, writer.WriteEntry([]byte("one\n"), timestamp))
	file := writer.file
	require.NotNil(t, file)
	require.NoError(t, writer.WriteEntry([]byte("two\n"), timestamp.Add(10*time.Hour)))
	assert.Same(t, file, writer.file)

	content, err := os.ReadFile(filepath.Join(directory, "app-2024-01-15.log"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(content))
}

// An unwritable directory degrades to dropping entries until a write
// succeeds in reopening.
func TestDateRotation_OpenFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	directory := t.TempDir()
	target := filepath.Join(directory, "logs")
	require.NoError(t, os.MkdirAll(target, 0o755))
	writer := testWriter(t, Options{
		FilePath: filepath.Join(target, "app.log"),
		Trigger:  TriggerDate,
	})

	timestamp := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chmod(target, 0o555))
	assert.Error(t, writer.WriteEntry([]byte("dropped\n"), timestamp))
	assert.Nil(t, writer.file)

	require.NoError(t, os.Chmod(target, 0o755))
	require.NoError(t, writer.WriteEntry([]byte("kept\n"), timestamp))

	content, err := os.ReadFile(filepath.Join(target, "app-2024-01-15.log"))
	require.NoError(t, err)
	assert.Equal(t, "kept\n", string(content))
}

func TestHybridRotation_PerBucketSuffix(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath:    filepath.Join(directory, "app.log"),
		Trigger:     TriggerHybrid,
		MaxFileSize: 32,
	})

	timestamp := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	entry := []byte(strings.Repeat("x", 30))
	require.NoError(t, writer.WriteEntry(entry, timestamp))
	require.NoError(t, writer.WriteEntry(entry, timestamp))
	drain(t, writer)

	rotated, err := os.ReadFile(filepath.Join(directory, "app-2024-01-15.1.log"))
	require.NoError(t, err)
	assert.Len(t, rotated, 60, "both entries land in the pre-rotation bucket file")
	assert.False(t, fileExists(filepath.Join(directory, "app-2024-01-15.log")), "live stream is reopened lazily")

	// The next write recreates the bucket file.
	require.NoError(t, writer.WriteEntry([]byte("fresh\n"), timestamp))
	live, err := os.ReadFile(filepath.Join(directory, "app-2024-01-15.log"))
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(live))
}

// Hybrid rotation scans for the first unused suffix instead of shifting.
func TestHybridRotation_NextFreeSuffix(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath:    filepath.Join(directory, "app.log"),
		Trigger:     TriggerHybrid,
		MaxFileSize: 32,
	})

	require.NoError(t, os.WriteFile(filepath.Join(directory, "app-2024-01-15.1.log"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "app-2024-01-15.2.log"), []byte("older"), 0o644))

	timestamp := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	entry := []byte(strings.Repeat("x", 30))
	require.NoError(t, writer.WriteEntry(entry, timestamp))
	require.NoError(t, writer.WriteEntry(entry, timestamp))
	drain(t, writer)

	assert.True(t, fileExists(filepath.Join(directory, "app-2024-01-15.3.log")))
	content, err := os.ReadFile(filepath.Join(directory, "app-2024-01-15.1.log"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(content), "existing suffixes are never overwritten")
}

func TestRetention_MaxDays(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath: filepath.Join(directory, "app.log"),
		Trigger:  TriggerDate,
		MaxDays:  30,
	})

	for _, name := range []string{
		"app-2024-01-01.log",
		"app-2024-01-31.log",
		"app-2024-02-20.log",
		"app-notadate.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(directory, name), []byte("x"), 0o644))
	}

	writer.cleanupByAge(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	assert.False(t, fileExists(filepath.Join(directory, "app-2024-01-01.log")), "strictly older than 30 days")
	assert.True(t, fileExists(filepath.Join(directory, "app-2024-01-31.log")), "exactly 30 days is kept")
	assert.True(t, fileExists(filepath.Join(directory, "app-2024-02-20.log")))
	assert.True(t, fileExists(filepath.Join(directory, "app-notadate.log")), "unparseable names are never deleted")
}

func TestRetention_HybridBuckets(t *testing.T) {
	directory := t.TempDir()
	writer := testWriter(t, Options{
		FilePath: filepath.Join(directory, "app.log"),
		Trigger:  TriggerHybrid,
		MaxFiles: 5,
	})

	for number := 1; number <= 7; number++ {
		name := fmt.Sprintf("app-2024-01-15.%d.log", number)
		require.NoError(t, os.WriteFile(filepath.Join(directory, name), []byte("x"), 0o644))
	}
	writer.cleanupBuckets()

	for _, name := range []string{"app-2024-01-15.1.log", "app-2024-01-15.2.log"} {
		assert.False(t, fileExists(filepath.Join(directory, name)), name)
	}
	for _, name := range []string{"app-2024-01-15.3.log", "app-2024-01-15.7.log"} {
		assert.True(t, fileExists(filepath.Join(directory, name)), name)
	}
}
