package syncqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		want       time.Duration
	}{
		{"retry 1", 1, 2 * time.Minute},
		{"retry 2", 2, 4 * time.Minute},
		{"retry 3", 3, 8 * time.Minute},
		{"retry 5", 5, 32 * time.Minute},
		{"retry 6 capped", 6, time.Hour},
		{"retry 60 capped", 60, time.Hour},
		{"negative", -1, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(tt.retryCount, time.Minute, time.Hour))
		})
	}
}
