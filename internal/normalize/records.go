package normalize

// Row is a raw remote row: header text to cell text.
type Row = map[string]string

const StatusPending = "pending"

type DelegateRecord struct {
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	MonthlyMinutes int    `json:"monthly_minutes"`
	AnnualMinutes  int    `json:"annual_minutes"`
	Active         bool   `json:"active"`
	UpdatedAt      string `json:"updated_at"`
	SourceDevice   string `json:"source_device"`
	Deleted        bool   `json:"deleted"`
}

// RequestRecord is the canonical shape of a request row. Sheet records the
// sheet the row was read from.
type RequestRecord struct {
	UUID         string     `json:"uuid"`
	DelegateUUID string     `json:"delegate_uuid"`
	DelegateName string     `json:"delegate_name"`
	Date         string     `json:"date"`
	Start        HourMinute `json:"start"`
	End          HourMinute `json:"end"`
	FullDay      bool       `json:"full_day"`
	TotalMinutes int        `json:"total_minutes"`
	Note         string     `json:"note"`
	Status       string     `json:"status"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
	SourceDevice string     `json:"source_device"`
	Deleted      bool       `json:"deleted"`
	AuditRef     string     `json:"audit_ref"`
	Sheet        string     `json:"-"`
}

// Key is the request's dedupe key; see DedupeKey.
func (r RequestRecord) Key() (string, bool) {
	return DedupeKey(r.DelegateUUID, r.Date, r.FullDay, r.TotalMinutes, r.Start.Minutes(), r.End.Minutes())
}

type ScheduleRecord struct {
	UUID         string     `json:"uuid"`
	DelegateUUID string     `json:"delegate_uuid"`
	DelegateName string     `json:"delegate_name,omitempty"`
	Weekday      int        `json:"weekday"`
	Morning      HourMinute `json:"morning"`
	Afternoon    HourMinute `json:"afternoon"`
	UpdatedAt    string     `json:"updated_at"`
	SourceDevice string     `json:"source_device"`
	Deleted      bool       `json:"deleted"`
}

type AuditLogRecord struct {
	EntryID      string `json:"entry_id"`
	DelegateUUID string `json:"delegate_uuid"`
	DateRange    string `json:"date_range"`
	GeneratedAt  string `json:"generated_at"`
	ContentHash  string `json:"content_hash"`
	UpdatedAt    string `json:"updated_at"`
	SourceDevice string `json:"source_device"`
}

type SettingRecord struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	UpdatedAt    string `json:"updated_at"`
	SourceDevice string `json:"source_device"`
}

func intField(f fields, name string) int {
	n, _ := ParseInt(f[name])
	return n
}

// Delegate normalizes a delegates-sheet row. Active defaults to true.
func Delegate(row Row) DelegateRecord {
	f := Delegates.cells(row)
	return DelegateRecord{
		UUID:           f["uuid"],
		Name:           f["name"],
		Gender:         f["gender"],
		MonthlyMinutes: intField(f, "monthly_minutes"),
		AnnualMinutes:  intField(f, "annual_minutes"),
		Active:         parseBoolDefault(f["active"], true),
		UpdatedAt:      Instant(f["updated_at"]),
		SourceDevice:   f["source_device"],
		Deleted:        ParseBool(f["deleted"]),
	}
}

// Request normalizes a row of the named sheet. Times may come as split hour
// and minute columns or as single "HH:MM" cells. A missing total of a
// partial request is derived from its time range. Status defaults to
// pending.
func Request(row Row, sheet string) RequestRecord {
	f := Requests.cells(row)
	r := RequestRecord{
		UUID:         f["uuid"],
		DelegateUUID: f["delegate_uuid"],
		DelegateName: f["delegate_name"],
		Date:         ParseDate(f["date"]),
		Start:        clockFrom(f["start"], f["start_hour"], f["start_minute"]),
		End:          clockFrom(f["end"], f["end_hour"], f["end_minute"]),
		FullDay:      ParseBool(f["full_day"]),
		Note:         f["note"],
		Status:       f["status"],
		CreatedAt:    Instant(f["created_at"]),
		UpdatedAt:    Instant(f["updated_at"]),
		SourceDevice: f["source_device"],
		Deleted:      ParseBool(f["deleted"]),
		AuditRef:     f["audit_ref"],
		Sheet:        sheet,
	}
	if total, ok := ParseInt(f["total_minutes"]); ok && total >= 0 {
		r.TotalMinutes = total
	} else if !r.FullDay && r.Start.Set && r.End.Set && r.End.Minutes() > r.Start.Minutes() {
		r.TotalMinutes = r.End.Minutes() - r.Start.Minutes()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return r
}

// Schedule normalizes a schedules-sheet row. Segment lengths may come as
// split hour and minute columns or as single "H:MM" cells.
func Schedule(row Row) ScheduleRecord {
	f := Schedules.cells(row)
	return ScheduleRecord{
		UUID:         f["uuid"],
		DelegateUUID: f["delegate_uuid"],
		DelegateName: f["delegate_name"],
		Weekday:      ParseWeekday(f["weekday"]),
		Morning:      clockFrom(f["morning"], f["morning_hour"], f["morning_minute"]),
		Afternoon:    clockFrom(f["afternoon"], f["afternoon_hour"], f["afternoon_minute"]),
		UpdatedAt:    Instant(f["updated_at"]),
		SourceDevice: f["source_device"],
		Deleted:      ParseBool(f["deleted"]),
	}
}

func AuditLogEntry(row Row) AuditLogRecord {
	f := AuditLog.cells(row)
	return AuditLogRecord{
		EntryID:      f["entry_id"],
		DelegateUUID: f["delegate_uuid"],
		DateRange:    f["date_range"],
		GeneratedAt:  Instant(f["generated_at"]),
		ContentHash:  f["content_hash"],
		UpdatedAt:    Instant(f["updated_at"]),
		SourceDevice: f["source_device"],
	}
}

func Setting(row Row) SettingRecord {
	f := Config.cells(row)
	return SettingRecord{
		Key:          f["key"],
		Value:        f["value"],
		UpdatedAt:    Instant(f["updated_at"]),
		SourceDevice: f["source_device"],
	}
}
