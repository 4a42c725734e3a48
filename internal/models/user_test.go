package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserDisplayFields(t *testing.T) {
	tests := []struct {
		email       string
		wantName    string
		wantInitial string
	}{
		{"raj@example.com", "raj", "R"},
		{"ünal@example.com", "ünal", "Ü"},
		{"@example.com", "User", "@"},
		{"", "User", "U"},
		{"no-at-sign", "no-at-sign", "N"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			u := &User{Email: tt.email}
			assert.Equal(t, tt.wantName, u.DisplayName())
			assert.Equal(t, tt.wantInitial, u.Initial())

			p := u.Profile()
			assert.Equal(t, tt.wantName, p.DisplayName)
			assert.Equal(t, tt.wantInitial, p.Initial)
		})
	}
}
