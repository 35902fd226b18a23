package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when an insert collides with a unique index
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound is returned by lookups that require the row to exist
	ErrNotFound = errors.New("record not found")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func translateCreateError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// paginate applies offset/limit. A non-positive limit returns every row.
func paginate(q *gorm.DB, page, limit int) *gorm.DB {
	if limit <= 0 {
		return q
	}
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * limit).Limit(limit)
}
