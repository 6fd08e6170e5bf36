package repository

import (
	"database/sql"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/types"
)

// normalizeDate truncates a timestamp to midnight of its calendar day
func normalizeDate(t time.Time) time.Time {
	return types.DateOf(t)
}

// nullTimeFromTime converts time.Time to sql.NullTime, treating the zero
// value as NULL
func nullTimeFromTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// timeFromNullTime converts sql.NullTime to time.Time
func timeFromNullTime(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}

// classifyError classifies database errors into storage error codes
func (r *SQLiteRepository) classifyError(err error) repoerrors.ErrorCode {
	return repoerrors.ClassifyError(err)
}
