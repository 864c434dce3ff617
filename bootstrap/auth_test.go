package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{
			name:    "valid token",
			token:   signedToken(t, now.Add(time.Hour)),
			expired: false,
		},
		{
			name:    "expired token",
			token:   signedToken(t, now.Add(-time.Hour)),
			expired: true,
		},
		{
			name:    "token inside the expiry leeway",
			token:   signedToken(t, now.Add(10*time.Second)),
			expired: true,
		},
		{
			name:    "malformed token",
			token:   "not-a-jwt",
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tokenExpired(tt.token, now))
		})
	}
}
