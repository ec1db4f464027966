package normalize

import (
	"strings"
	"time"
)

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseInstant parses an ISO-8601 timestamp. Values without a zone are UTC.
// ok is false for empty or unparsable input, which callers treat as absent.
func ParseInstant(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatInstant renders t the way every timestamp written by this module is
// stored: RFC 3339 in UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Instant returns the canonical form of s when it parses, s trimmed otherwise.
func Instant(s string) string {
	if t, ok := ParseInstant(s); ok {
		return FormatInstant(t)
	}
	return strings.TrimSpace(s)
}

// IsAfterLastSync is true when updatedAt is present and either there is no
// watermark or updatedAt is strictly after it.
func IsAfterLastSync(updatedAt, watermark string) bool {
	u, ok := ParseInstant(updatedAt)
	if !ok {
		return false
	}
	w, ok := ParseInstant(watermark)
	return !ok || u.After(w)
}

// IsRemoteNewer is true when the remote instant is present and the local one
// is absent or strictly older.
func IsRemoteNewer(localUpdatedAt, remoteUpdatedAt string) bool {
	r, ok := ParseInstant(remoteUpdatedAt)
	if !ok {
		return false
	}
	l, ok := ParseInstant(localUpdatedAt)
	return !ok || r.After(l)
}

// IsLocalNewer mirrors IsRemoteNewer for the push direction.
func IsLocalNewer(localUpdatedAt, remoteUpdatedAt string) bool {
	return IsRemoteNewer(remoteUpdatedAt, localUpdatedAt)
}

// IsConflict is true when all three instants parse and both sides changed
// strictly after the watermark of the last successful cycle.
func IsConflict(localUpdatedAt, remoteUpdatedAt, watermark string) bool {
	l, okL := ParseInstant(localUpdatedAt)
	r, okR := ParseInstant(remoteUpdatedAt)
	w, okW := ParseInstant(watermark)
	if !okL || !okR || !okW {
		return false
	}
	return l.After(w) && r.After(w)
}

// SameInstant is true when both values parse to the same instant. Pull copies
// the remote updated_at onto the rows it writes, so equal instants mean both
// sides hold the same version.
func SameInstant(a, b string) bool {
	ta, okA := ParseInstant(a)
	tb, okB := ParseInstant(b)
	return okA && okB && ta.Equal(tb)
}
