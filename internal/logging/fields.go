package logging

import "log/slog"

// Common field names for consistent logging across the agent.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldPath      = "path"
	FieldFile      = "file"
	FieldBytes     = "bytes"
	FieldCount     = "count"
	FieldSubject   = "subject"
	FieldURL       = "url"
	FieldInterval  = "interval"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Component returns a slog attribute for the component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// Path returns a slog attribute for a filesystem path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// File returns a slog attribute for a spool file name.
func File(name string) slog.Attr {
	return slog.String(FieldFile, name)
}

// Bytes returns a slog attribute for a byte count.
func Bytes(n int64) slog.Attr {
	return slog.Int64(FieldBytes, n)
}

// Count returns a slog attribute for a generic item count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Subject returns a slog attribute for a messaging subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// URL returns a slog attribute for a remote endpoint URL.
func URL(url string) slog.Attr {
	return slog.String(FieldURL, url)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
