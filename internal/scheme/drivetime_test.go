package scheme_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luc118i/operacional-app/internal/scheme"
)

func TestEstimateDriveMinutes(t *testing.T) {
	tests := []struct {
		name   string
		km     float64
		custom float64
		want   int
	}{
		{"regional band", 70, 0, 60},
		{"regional upper bound", 100, 0, 86},
		{"highway", 150, 0, 113},
		{"short leg", 5, 0, 30},
		{"just under short threshold", 14.9, 0, 30},
		{"zero", 0, 0, 30},
		{"negative", -12, 0, 30},
		{"NaN", math.NaN(), 0, 30},
		{"infinite", math.Inf(1), 0, 30},
		{"custom speed", 100, 50, 120},
		{"custom speed ignored when zero", 150, 0, 113},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheme.EstimateDriveMinutes(tt.km, tt.custom))
		})
	}
}
