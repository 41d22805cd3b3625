package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pitchside/server/internal/storage"
)

const uniqueViolation = "23505"

// constraintFields names the public field behind each unique constraint.
var constraintFields = map[string]string{
	"users_username_key":    "username",
	"users_email_key":       "email",
	"teams_name_key":        "name",
	"teams_short_name_key":  "shortName",
	"tournaments_name_key":  "name",
	"tournament_teams_pkey": "team",
}

// writeError turns a unique violation into a *storage.ConflictError and
// wraps anything else with op.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &storage.ConflictError{Field: constraintFields[pgErr.ConstraintName]}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// derefString safely dereferences a string pointer, returning empty string if nil
func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nullString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// jsonValue encodes v for a JSONB column.
func jsonValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return data, nil
}

// decodeJSON reads a JSONB column into v. Empty values leave v untouched.
func decodeJSON(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// jsonValues encodes several values for one statement.
func jsonValues(vs ...any) ([][]byte, error) {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		data, err := jsonValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
