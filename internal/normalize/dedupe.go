package normalize

import (
	"strconv"
	"strings"
)

// DedupeKey derives the functional identity of a request. It reports false
// when identity or date is missing. Full-day requests are keyed by identity,
// date and the flag alone; partial requests also by start, end and total
// minutes. Inputs must already be normalized: the key is built from them
// verbatim.
func DedupeKey(identity, date string, fullDay bool, totalMinutes, startMinutes, endMinutes int) (string, bool) {
	identity = strings.TrimSpace(identity)
	date = strings.TrimSpace(date)
	if identity == "" || date == "" {
		return "", false
	}
	if fullDay {
		return identity + "|" + date + "|full", true
	}
	return identity + "|" + date + "|partial|" + strconv.Itoa(startMinutes) + "|" +
		strconv.Itoa(endMinutes) + "|" + strconv.Itoa(totalMinutes), true
}

// DelegateKey matches delegates that lack an identifier by folded name.
func DelegateKey(name string) (string, bool) {
	k := FoldName(name)
	return k, k != ""
}

// ScheduleKey is the (delegate, weekday) pair a schedule row projects.
func ScheduleKey(delegateUUID string, weekday int) (string, bool) {
	delegateUUID = strings.TrimSpace(delegateUUID)
	if delegateUUID == "" || weekday < 1 || weekday > 7 {
		return "", false
	}
	return delegateUUID + "|" + strconv.Itoa(weekday), true
}

// AuditKey matches audit entries by the document they describe.
func AuditKey(delegateUUID, dateRange, contentHash string) (string, bool) {
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" {
		return "", false
	}
	return strings.TrimSpace(delegateUUID) + "|" + strings.TrimSpace(dateRange) + "|" + contentHash, true
}
