package repositories

import (
	"database/sql"
	"fmt"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"time"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrConflict is returned when a write is based on a stale version of the row.
	ErrConflict = errors.NewSentinel("conflict")
)

// ConflictError reports a version mismatch on an optimistically locked row.
type ConflictError struct {
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: current version is %d", e.CurrentVersion)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict //nolint:errorlint // sentinel comparison.
}

// notFound converts sql.ErrNoRows into ErrNotFound and wraps everything else.
func notFound(err error, msg string, attrs ...slog.Attr) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, msg, attrs...)
	}
	return errors.Wrap(err, msg, attrs...)
}

// toMillis is the storage format of every timestamp column.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{Int64: 0, Valid: false}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func fromNullableMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}
