package attendancehandler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthWindowDefaultsToCurrentMonth(t *testing.T) {
	r := httptest.NewRequest("GET", "/attendance/employees/abc", nil)

	year, month, ok := monthWindow(r)

	require.True(t, ok)
	now := time.Now().UTC()
	assert.Equal(t, now.Year(), year)
	assert.Equal(t, int(now.Month()), month)
}

func TestMonthWindowParsesExplicitParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/attendance/employees/abc?month=2&year=2026", nil)

	year, month, ok := monthWindow(r)

	require.True(t, ok)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 2, month)
}

func TestMonthWindowRejectsBadParams(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{name: "month zero", query: "month=0"},
		{name: "month thirteen", query: "month=13"},
		{name: "month not a number", query: "month=march"},
		{name: "year too small", query: "year=99"},
		{name: "year not a number", query: "year=twenty"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/attendance/employees/abc?"+tc.query, nil)
			_, _, ok := monthWindow(r)
			assert.False(t, ok)
		})
	}
}
