package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	before = "2025-01-10T00:00:00Z"
	mark   = "2025-01-15T00:00:00Z"
	after  = "2025-01-20T00:00:00Z"
)

func TestParseInstant(t *testing.T) {
	want := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2025-01-15T10:30:00Z",
		"2025-01-15T11:30:00+01:00",
		"2025-01-15T10:30:00.000Z",
		"2025-01-15T10:30:00",
		"2025-01-15 10:30:00",
		"2025-01-15 10:30",
	} {
		got, ok := ParseInstant(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
	}

	_, ok := ParseInstant("")
	assert.False(t, ok)
	_, ok = ParseInstant("yesterday")
	assert.False(t, ok)
}

func TestInstant(t *testing.T) {
	assert.Equal(t, "2025-01-15T10:30:00Z", Instant("2025-01-15T11:30:00+01:00"))
	assert.Equal(t, "garbage", Instant(" garbage "))
	assert.Equal(t, "", Instant(""))
}

func TestIsAfterLastSync(t *testing.T) {
	assert.True(t, IsAfterLastSync(after, mark))
	assert.False(t, IsAfterLastSync(mark, mark), "strictly after")
	assert.False(t, IsAfterLastSync(before, mark))
	assert.True(t, IsAfterLastSync(before, ""), "no watermark means everything is new")
	assert.True(t, IsAfterLastSync(before, "not a time"))
	assert.False(t, IsAfterLastSync("", mark))
	assert.False(t, IsAfterLastSync("bad", ""))
}

func TestIsRemoteNewer(t *testing.T) {
	assert.True(t, IsRemoteNewer(before, after))
	assert.False(t, IsRemoteNewer(after, before))
	assert.False(t, IsRemoteNewer(mark, mark))
	assert.True(t, IsRemoteNewer("", after), "absent local counts as older")
	assert.True(t, IsRemoteNewer("bad", after))
	assert.False(t, IsRemoteNewer(before, ""))
	assert.False(t, IsRemoteNewer("", ""))
	assert.False(t, IsRemoteNewer("2025-01-15T11:00:00+01:00", "2025-01-15T10:00:00Z"), "same instant in another zone")

	assert.True(t, IsLocalNewer(after, before))
	assert.False(t, IsLocalNewer(before, after))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(after, after, mark))
	assert.False(t, IsConflict(after, before, mark))
	assert.False(t, IsConflict(before, after, mark))
	assert.False(t, IsConflict(mark, after, mark), "equal to watermark is not after it")
	assert.False(t, IsConflict(after, after, ""), "no watermark, no conflict")
	assert.False(t, IsConflict("", after, mark))
	assert.False(t, IsConflict(after, "bad", mark))
}

func TestSameInstant(t *testing.T) {
	assert.True(t, SameInstant(after, after))
	assert.True(t, SameInstant("2025-01-15T11:00:00+01:00", "2025-01-15 10:00:00"))
	assert.False(t, SameInstant(after, mark))
	assert.False(t, SameInstant("", ""))
	assert.False(t, SameInstant("bad", "bad"))
}
