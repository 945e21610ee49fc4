package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
)

// nowUTC returns the current UTC time formatted as RFC3339.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime parses an RFC3339 column, returning the zero time when empty.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// encodePayload converts an action's update document to a value suitable
// for SQLite storage. Returns nil (SQL NULL) when there is no document.
func encodePayload(u *domain.PlanUpdate) (any, error) {
	if u == nil {
		return nil, nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encoding action payload: %w", err)
	}
	return string(b), nil
}

func decodePayload(s sql.NullString) (*domain.PlanUpdate, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var u domain.PlanUpdate
	if err := json.Unmarshal([]byte(s.String), &u); err != nil {
		return nil, fmt.Errorf("decoding action payload: %w", err)
	}
	return &u, nil
}
