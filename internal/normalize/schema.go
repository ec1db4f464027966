package normalize

// Sheet names of the remote dataset.
const (
	SheetDelegates = "delegates"
	SheetRequests  = "requests"
	SheetSchedules = "schedules"
	SheetAuditLog  = "audit-log"
	SheetConfig    = "config"
)

// Column is a canonical column and the other header spellings it is known by.
// Derived columns are read when present but never created by ensure-schema:
// they are alternative shapes of canonical data, such as a single "HH:MM"
// cell instead of split hour and minute columns.
type Column struct {
	Name    string
	Aliases []string
	Derived bool
}

// Schema describes one remote sheet.
type Schema struct {
	Sheet   string
	Columns []Column

	lookup map[string]string
	// rank orders the spellings of a column: 0 for the canonical name, then
	// the aliases in declaration order.
	rank map[string]int
}

func newSchema(sheet string, cols ...Column) Schema {
	s := Schema{Sheet: sheet, Columns: cols, lookup: make(map[string]string), rank: make(map[string]int)}
	for _, c := range cols {
		s.lookup[FoldHeader(c.Name)] = c.Name
		s.rank[FoldHeader(c.Name)] = 0
		for i, a := range c.Aliases {
			if _, taken := s.lookup[FoldHeader(a)]; !taken {
				s.lookup[FoldHeader(a)] = c.Name
				s.rank[FoldHeader(a)] = i + 1
			}
		}
	}
	return s
}

// Header returns the canonical header row: every non-derived column in order.
func (s Schema) Header() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.Derived {
			out = append(out, c.Name)
		}
	}
	return out
}

// Canonical maps header text to the canonical column it stands for.
func (s Schema) Canonical(header string) (string, bool) {
	name, ok := s.lookup[FoldHeader(header)]
	return name, ok
}

// Matches reports whether header text stands for the canonical column.
func (s Schema) Matches(header, canonical string) bool {
	name, ok := s.Canonical(header)
	return ok && name == canonical
}

// cells re-keys a raw row by canonical column. When several headers resolve
// to the same column, the non-empty cell under the canonical name wins, then
// the one under the earliest declared alias. Headers that fold to the same
// spelling are ordered by their raw text.
func (s Schema) cells(row map[string]string) fields {
	out := make(fields, len(row))
	from := make(map[string]string, len(row))
	for h, v := range row {
		folded := FoldHeader(h)
		name, ok := s.lookup[folded]
		if !ok {
			continue
		}
		v = trimCell(v)
		if v == "" {
			if _, seen := out[name]; !seen {
				out[name] = ""
			}
			continue
		}
		if prev, seen := from[name]; seen && !s.precedes(h, prev) {
			continue
		}
		from[name] = h
		out[name] = v
	}
	return out
}

// precedes reports whether header a takes priority over header b for the
// column they both stand for.
func (s Schema) precedes(a, b string) bool {
	ra, rb := s.rank[FoldHeader(a)], s.rank[FoldHeader(b)]
	if ra != rb {
		return ra < rb
	}
	return a < b
}

type fields map[string]string

var (
	colUpdatedAt    = Column{Name: "updated_at", Aliases: []string{"updated", "actualizado", "modificado", "last_modified", "fecha_modificacion"}}
	colSourceDevice = Column{Name: "source_device", Aliases: []string{"device", "dispositivo", "origen"}}
	colDeleted      = Column{Name: "deleted", Aliases: []string{"is_deleted", "borrado", "eliminado"}}
)

// Delegates is the schema of the delegates sheet.
var Delegates = newSchema(SheetDelegates,
	Column{Name: "uuid", Aliases: []string{"id", "identifier", "identificador"}},
	Column{Name: "name", Aliases: []string{"nombre", "full_name", "delegado", "delegada"}},
	Column{Name: "gender", Aliases: []string{"genero", "sexo"}},
	Column{Name: "monthly_minutes", Aliases: []string{"monthly_allowance", "minutos_mensuales", "bolsa_mensual"}},
	Column{Name: "annual_minutes", Aliases: []string{"annual_allowance", "minutos_anuales", "bolsa_anual"}},
	Column{Name: "active", Aliases: []string{"enabled", "activo", "activa"}},
	colUpdatedAt, colSourceDevice, colDeleted,
)

// Requests is the schema of the requests sheet.
var Requests = newSchema(SheetRequests,
	Column{Name: "uuid", Aliases: []string{"id", "identifier", "identificador", "solicitud_id"}},
	Column{Name: "delegate_uuid", Aliases: []string{"delegate_id", "delegado_uuid", "delegada_uuid", "delegado_id"}},
	Column{Name: "delegate_name", Aliases: []string{"delegate", "delegado", "delegada", "nombre", "name", "nombre_delegado"}},
	Column{Name: "date", Aliases: []string{"fecha", "day", "dia", "fecha_solicitud"}},
	Column{Name: "start_hour", Aliases: []string{"start_h", "hora_inicio", "desde_hora", "inicio_hora"}},
	Column{Name: "start_minute", Aliases: []string{"start_m", "minuto_inicio", "desde_minuto", "inicio_minuto"}},
	Column{Name: "end_hour", Aliases: []string{"end_h", "hora_fin", "hasta_hora", "fin_hora"}},
	Column{Name: "end_minute", Aliases: []string{"end_m", "minuto_fin", "hasta_minuto", "fin_minuto"}},
	Column{Name: "full_day", Aliases: []string{"all_day", "completo", "dia_completo", "jornada_completa"}},
	Column{Name: "total_minutes", Aliases: []string{"minutes", "total", "minutos", "minutos_total"}},
	Column{Name: "note", Aliases: []string{"notes", "nota", "notas", "observaciones", "comentario"}},
	Column{Name: "status", Aliases: []string{"estado"}},
	Column{Name: "created_at", Aliases: []string{"created", "creado", "fecha_creacion"}},
	colUpdatedAt, colSourceDevice, colDeleted,
	Column{Name: "audit_ref", Aliases: []string{"audit_log_ref", "pdf_id", "pdf"}},
	Column{Name: "start", Aliases: []string{"start_time", "desde", "inicio", "hora_desde"}, Derived: true},
	Column{Name: "end", Aliases: []string{"end_time", "hasta", "fin", "hora_hasta"}, Derived: true},
)

// Schedules is the schema of the schedules sheet.
var Schedules = newSchema(SheetSchedules,
	Column{Name: "uuid", Aliases: []string{"id", "identifier", "identificador"}},
	Column{Name: "delegate_uuid", Aliases: []string{"delegate_id", "delegado_uuid", "delegada_uuid", "delegado_id"}},
	Column{Name: "weekday", Aliases: []string{"day_of_week", "dia_semana", "dia"}},
	Column{Name: "morning_hour", Aliases: []string{"morning_h", "manana_horas", "manana_h"}},
	Column{Name: "morning_minute", Aliases: []string{"morning_m", "manana_minutos", "manana_m"}},
	Column{Name: "afternoon_hour", Aliases: []string{"afternoon_h", "tarde_horas", "tarde_h"}},
	Column{Name: "afternoon_minute", Aliases: []string{"afternoon_m", "tarde_minutos", "tarde_m"}},
	colUpdatedAt, colSourceDevice, colDeleted,
	Column{Name: "delegate_name", Aliases: []string{"delegate", "delegado", "delegada", "nombre"}, Derived: true},
	Column{Name: "morning", Aliases: []string{"manana"}, Derived: true},
	Column{Name: "afternoon", Aliases: []string{"tarde"}, Derived: true},
)

// AuditLog is the schema of the audit-log sheet.
var AuditLog = newSchema(SheetAuditLog,
	Column{Name: "entry_id", Aliases: []string{"id", "pdf_id", "identifier"}},
	Column{Name: "delegate_uuid", Aliases: []string{"delegate_id", "delegado_uuid", "delegada_uuid"}},
	Column{Name: "date_range", Aliases: []string{"range", "rango", "periodo", "rango_fechas"}},
	Column{Name: "generated_at", Aliases: []string{"generation_date", "generado", "fecha_generacion"}},
	Column{Name: "content_hash", Aliases: []string{"hash", "sha256", "pdf_hash"}},
	colUpdatedAt, colSourceDevice,
)

// Config is the schema of the shared key/value config sheet.
var Config = newSchema(SheetConfig,
	Column{Name: "key", Aliases: []string{"clave"}},
	Column{Name: "value", Aliases: []string{"valor"}},
	colUpdatedAt, colSourceDevice,
)

// Schemas lists every sheet in sync order.
var Schemas = []Schema{Delegates, Requests, Schedules, AuditLog, Config}
