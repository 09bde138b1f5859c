package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyMode        = "mode"
	KeyStage       = "stage"
	KeyDocument    = "document"
	KeyEntries     = "entries"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyURL         = "url"
	KeyHandle      = "handle"
	KeyFormat      = "format"
	KeyWindowFrom  = "window_from"
	KeyWindowUntil = "window_until"
	KeySize        = "size"
	KeySubject     = "subject"
	KeySchedule    = "schedule_name"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Document(name string) slog.Attr  { return slog.String(KeyDocument, name) }
func Entries(n int) slog.Attr         { return slog.Int(KeyEntries, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Handle(h string) slog.Attr       { return slog.String(KeyHandle, h) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Size(s string) slog.Attr         { return slog.String(KeySize, s) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func ScheduleName(n string) slog.Attr { return slog.String(KeySchedule, n) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

// Window timestamps are logged in the same layout used for change list names.
func WindowFrom(t time.Time) slog.Attr {
	return slog.String(KeyWindowFrom, t.UTC().Format(time.RFC3339))
}

func WindowUntil(t time.Time) slog.Attr {
	return slog.String(KeyWindowUntil, t.UTC().Format(time.RFC3339))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
