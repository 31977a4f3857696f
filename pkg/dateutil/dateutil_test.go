package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAge(t *testing.T) {
	birth := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{"day before birthday", time.Date(2030, 6, 14, 0, 0, 0, 0, time.UTC), 49},
		{"on birthday", time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC), 50},
		{"later in year", time.Date(2030, 12, 1, 0, 0, 0, 0, time.UTC), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Age(birth, tt.at))
		})
	}
}

func TestRMDAge(t *testing.T) {
	tests := []struct {
		birthYear int
		expected  int
	}{
		{1945, 72},
		{1950, 72},
		{1951, 73},
		{1959, 73},
		{1960, 75},
		{1990, 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, RMDAge(tt.birthYear), "birth year %d", tt.birthYear)
	}
}

func TestIsRMDAge(t *testing.T) {
	assert.False(t, IsRMDAge(1960, 74))
	assert.True(t, IsRMDAge(1960, 75))
	assert.True(t, IsRMDAge(1950, 72))
}

func TestIsEarlyWithdrawalAge(t *testing.T) {
	assert.True(t, IsEarlyWithdrawalAge(59))
	assert.False(t, IsEarlyWithdrawalAge(60))
	assert.True(t, IsEarlyWithdrawalAge(30))
}

func TestOneYearBefore(t *testing.T) {
	sale := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), OneYearBefore(sale))
}

func TestBirthYear(t *testing.T) {
	assert.Equal(t, 1984, BirthYear(2026, 42))
}

func TestDaysInYear(t *testing.T) {
	assert.Equal(t, 366, DaysInYear(2024))
	assert.Equal(t, 365, DaysInYear(2025))
	assert.Equal(t, 365, DaysInYear(1900))
	assert.Equal(t, 366, DaysInYear(2000))
}
