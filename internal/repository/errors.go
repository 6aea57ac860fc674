package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")

	// ErrConditionFailed is returned when a conditional update matched no rows.
	ErrConditionFailed = errors.New("conditional update matched no rows")

	// ErrNotFound aliases gorm's sentinel so callers need not import gorm.
	ErrNotFound = gorm.ErrRecordNotFound
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite without TranslateError
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func translate(err error) error {
	if IsUniqueViolation(err) && !errors.Is(err, ErrDuplicate) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
