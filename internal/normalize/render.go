package normalize

import "strconv"

// Cells are canonical column name to cell text, ready to be written.
type Cells = map[string]string

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatPart(c HourMinute, minute bool) string {
	if !c.Set {
		return ""
	}
	if minute {
		return strconv.Itoa(c.Minute)
	}
	return strconv.Itoa(c.Hour)
}

func RenderDelegate(d DelegateRecord) Cells {
	return Cells{
		"uuid":            d.UUID,
		"name":            d.Name,
		"gender":          d.Gender,
		"monthly_minutes": strconv.Itoa(d.MonthlyMinutes),
		"annual_minutes":  strconv.Itoa(d.AnnualMinutes),
		"active":          formatBool(d.Active),
		"updated_at":      d.UpdatedAt,
		"source_device":   d.SourceDevice,
		"deleted":         formatBool(d.Deleted),
	}
}

// RenderRequest writes times as split hour and minute columns.
func RenderRequest(r RequestRecord) Cells {
	return Cells{
		"uuid":          r.UUID,
		"delegate_uuid": r.DelegateUUID,
		"delegate_name": r.DelegateName,
		"date":          r.Date,
		"start_hour":    formatPart(r.Start, false),
		"start_minute":  formatPart(r.Start, true),
		"end_hour":      formatPart(r.End, false),
		"end_minute":    formatPart(r.End, true),
		"full_day":      formatBool(r.FullDay),
		"total_minutes": strconv.Itoa(r.TotalMinutes),
		"note":          r.Note,
		"status":        r.Status,
		"created_at":    r.CreatedAt,
		"updated_at":    r.UpdatedAt,
		"source_device": r.SourceDevice,
		"deleted":       formatBool(r.Deleted),
		"audit_ref":     r.AuditRef,
	}
}

func RenderSchedule(s ScheduleRecord) Cells {
	return Cells{
		"uuid":             s.UUID,
		"delegate_uuid":    s.DelegateUUID,
		"weekday":          strconv.Itoa(s.Weekday),
		"morning_hour":     formatPart(s.Morning, false),
		"morning_minute":   formatPart(s.Morning, true),
		"afternoon_hour":   formatPart(s.Afternoon, false),
		"afternoon_minute": formatPart(s.Afternoon, true),
		"updated_at":       s.UpdatedAt,
		"source_device":    s.SourceDevice,
		"deleted":          formatBool(s.Deleted),
	}
}

func RenderAuditLog(a AuditLogRecord) Cells {
	return Cells{
		"entry_id":      a.EntryID,
		"delegate_uuid": a.DelegateUUID,
		"date_range":    a.DateRange,
		"generated_at":  a.GeneratedAt,
		"content_hash":  a.ContentHash,
		"updated_at":    a.UpdatedAt,
		"source_device": a.SourceDevice,
	}
}

func RenderSetting(s SettingRecord) Cells {
	return Cells{
		"key":           s.Key,
		"value":         s.Value,
		"updated_at":    s.UpdatedAt,
		"source_device": s.SourceDevice,
	}
}
