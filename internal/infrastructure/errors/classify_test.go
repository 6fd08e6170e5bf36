package errors

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestClassifyError_StandardLibrary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"cancelled", context.Canceled, ErrCodeTimeout},
		{"nil", nil, ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyError_MessageFallback(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorCode
	}{
		{"unique", "UNIQUE constraint failed: goals.app_id", ErrCodeDuplicate},
		{"foreign key", "FOREIGN KEY constraint failed", ErrCodeConstraint},
		{"locked", "database is locked", ErrCodeBusy},
		{"malformed", "database disk image is malformed", ErrCodeCorruption},
		{"missing table", "no such table: streak_recoveries", ErrCodeSchema},
		{"disk", "no space left on device", ErrCodeDiskSpace},
		{"unknown", "something odd", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(errors.New(tt.msg)); got != tt.want {
				t.Errorf("ClassifyError(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifySQLiteError_DriverCodes(t *testing.T) {
	tests := []struct {
		name string
		err  sqlite3.Error
		want ErrorCode
	}{
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, ErrCodeDuplicate},
		{"fk", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, ErrCodeConstraint},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrCodeBusy},
		{"corrupt", sqlite3.Error{Code: sqlite3.ErrCorrupt}, ErrCodeCorruption},
		{"readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, ErrCodePermission},
		{"cantopen", sqlite3.Error{Code: sqlite3.ErrCantOpen}, ErrCodeConnection},
		{"full", sqlite3.Error{Code: sqlite3.ErrFull}, ErrCodeDiskSpace},
		{"misuse", sqlite3.Error{Code: sqlite3.ErrMisuse}, ErrCodeInternal},
		{"schema", sqlite3.Error{Code: sqlite3.ErrSchema}, ErrCodeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySQLiteError(tt.err); got != tt.want {
				t.Errorf("classifySQLiteError = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapDatabaseError(t *testing.T) {
	if WrapDatabaseError("op", nil) != nil {
		t.Error("Wrapping nil should return nil")
	}

	err := WrapDatabaseError("GetGoal", sql.ErrNoRows)
	if !IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND classification, got %v", err)
	}

	withCtx := WrapDatabaseErrorWithContext("GetGoal", sql.ErrNoRows, map[string]string{"app_id": "a"})
	var storageErr *StorageError
	if !errors.As(withCtx, &storageErr) {
		t.Fatal("Expected StorageError")
	}
	if storageErr.Context["app_id"] != "a" {
		t.Errorf("Expected context to carry app_id, got %v", storageErr.Context)
	}
}
