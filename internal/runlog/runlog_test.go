package runlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2021, 7, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Entity:    "123456",
		Month:     "2021-06",
		Status:    "failed",
		Records:   0,
		Detail:    "connection reset",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	err := Append(dir, []Entry{testEntry()})
	require.NoError(t, err)

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "123456", entries[0].Entity)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Month = "2021-07"
	e2.Status = "ok"
	e2.Records = 12
	e2.Detail = ""
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "2021-06", entries[0].Month)
	assert.Equal(t, "2021-07", entries[1].Month)
	assert.Equal(t, 12, entries[1].Records)
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	require.NoError(t, Append(dir, []Entry{original}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, original.Entity, got.Entity)
	assert.Equal(t, original.Month, got.Month)
	assert.Equal(t, original.Status, got.Status)
	assert.Equal(t, original.Records, got.Records)
	assert.Equal(t, original.Detail, got.Detail)
}

func TestRead_NotFound(t *testing.T) {
	dir := t.TempDir()
	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harvest-log.csv"), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 6 fields")
}

func TestTimestampFormat(t *testing.T) {
	row := MarshalEntry(testEntry())
	assert.Equal(t, "2021-07-15T10:30:00Z", row[0])
}

func TestLogRecordAndFlush(t *testing.T) {
	dir := t.TempDir()

	l := NewLog()
	l.now = func() time.Time { return testTime }
	l.Record("123456", "2021-07", "ok", 5, "")
	l.Record("1234XXXXXXXX5678", "2021-06", "failed", 0, "bad gateway")

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2021-07", entries[0].Month)

	require.NoError(t, l.Flush(dir))
	assert.Empty(t, l.Entries())

	stored, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "1234XXXXXXXX5678", stored[1].Entity)
	assert.Equal(t, "failed", stored[1].Status)
	assert.True(t, testTime.Equal(stored[0].Timestamp))
}

func TestLogFlushEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewLog().Flush(dir))

	_, err := os.Stat(filepath.Join(dir, "harvest-log.csv"))
	assert.True(t, os.IsNotExist(err))
}
