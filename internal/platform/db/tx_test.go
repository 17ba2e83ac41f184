package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func TestViolationHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "employees_username_key"})

	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(unique, "employees_username_key"))
	assert.False(t, IsUniqueViolation(unique, "employees_email_key"))
	assert.False(t, IsForeignKeyViolation(unique))

	fk := &pgconn.PgError{Code: "23503"}
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestSerializationFailureBecomesConflict(t *testing.T) {
	serial := fmt.Errorf("lock product: %w", &pgconn.PgError{Code: "40001"})
	assert.True(t, IsSerializationFailure(serial))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))

	err := conflictOr(serial)
	assert.ErrorIs(t, err, shared.ErrConflict)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "40001", pgErr.Code)

	plain := errors.New("boom")
	assert.Same(t, plain, conflictOr(plain))
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%sugar%", ContainsPattern("sugar"))
	assert.Equal(t, `%\_%`, ContainsPattern("_"))
	assert.Equal(t, `%50\%%`, ContainsPattern("50%"))
	assert.Equal(t, `%a\\b%`, ContainsPattern(`a\b`))
}
