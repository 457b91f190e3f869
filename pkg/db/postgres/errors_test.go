package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestViolationCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
	}{
		{"unique", &pq.Error{Code: "23505"}, true, false},
		{"foreign key wrapped", fmt.Errorf("delete slot: %w", &pq.Error{Code: "23503"}), false, true},
		{"other pq code", &pq.Error{Code: "40001"}, false, false},
		{"plain error", errors.New("23503"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.unique {
				t.Errorf("IsUniqueViolation = %v, want %v", got, tt.unique)
			}
			if got := IsForeignKeyViolation(tt.err); got != tt.foreignKey {
				t.Errorf("IsForeignKeyViolation = %v, want %v", got, tt.foreignKey)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	for _, id := range []string{"", "0", "-4", "abc"} {
		if _, ok := ParseID(id); ok {
			t.Errorf("ParseID(%q) accepted", id)
		}
	}
	if key, ok := ParseID("42"); !ok || FormatID(key) != "42" {
		t.Errorf("ParseID(42) = %d, %v", key, ok)
	}
}
