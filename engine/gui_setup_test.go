package engine

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTrimLastRune(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"MS", "M"},
		{"José", "Jos"},
		{"Zoë", "Zo"},
		{"測試", "測"},
	}
	for _, tt := range tests {
		got := trimLastRune(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got), tt.in)
	}
}
