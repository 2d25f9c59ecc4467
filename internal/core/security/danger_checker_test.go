package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordChecker_Match(t *testing.T) {
	checker := NewKeywordChecker(&AllowlistPolicy{
		DangerousKeywords: []string{"Format", "system32", " "},
	})

	tests := []struct {
		name    string
		subject string
		want    []string
	}{
		{"no match", "notepad", nil},
		{"case insensitive", "FORMAT c:", []string{"format"}},
		{"several", `format C:\Windows\System32`, []string{"format", "system32"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.Match(tt.subject))
		})
	}
}

func TestKeywordChecker_NilPolicy(t *testing.T) {
	assert.Empty(t, NewKeywordChecker(nil).Match("format"))
}
