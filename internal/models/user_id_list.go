package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// UserIDList is an ordered list of user ids stored as JSON text, e.g. "[2,3]".
//
// Valid is false when the column is NULL. A column holding anything other than a
// JSON integer array also decodes to an invalid list with Malformed set, so read
// paths can fall back to the legacy single-assignee column instead of failing.
// An explicitly empty array ("[]") is Valid with no IDs.
type UserIDList struct {
	IDs       []int64
	Valid     bool
	Malformed bool
}

// NewUserIDList returns a valid list holding a copy of ids.
func NewUserIDList(ids []int64) UserIDList {
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return UserIDList{IDs: cp, Valid: true}
}

// ParseUserIDList decodes raw JSON text with a default: blank or "null" is an
// absent list and anything undecodable is an absent list marked Malformed.
func ParseUserIDList(raw string) UserIDList {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return UserIDList{}
	}

	var ids []int64
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return UserIDList{Malformed: true}
	}
	if ids == nil {
		ids = []int64{}
	}
	return UserIDList{IDs: ids, Valid: true}
}

// Empty reports whether the list carries no user ids (absent, malformed or []).
func (l UserIDList) Empty() bool {
	return !l.Valid || len(l.IDs) == 0
}

// Value implements the driver.Valuer interface
func (l UserIDList) Value() (driver.Value, error) {
	if !l.Valid {
		return nil, nil
	}
	ids := l.IDs
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface. It never fails.
func (l *UserIDList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = UserIDList{}
	case []byte:
		*l = ParseUserIDList(string(v))
	case string:
		*l = ParseUserIDList(v)
	default:
		*l = UserIDList{Malformed: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (l UserIDList) MarshalJSON() ([]byte, error) {
	if !l.Valid {
		return []byte("null"), nil
	}
	ids := l.IDs
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON accepts null, an integer array, or a string holding a JSON
// integer array (the legacy web form posts the latter). Request bodies are
// strict: anything else is an error.
func (l *UserIDList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = UserIDList{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed := ParseUserIDList(s)
		if parsed.Malformed {
			return fmt.Errorf("invalid user id list %q", s)
		}
		*l = parsed
		return nil
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("invalid user id list: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	*l = UserIDList{IDs: ids, Valid: true}
	return nil
}
