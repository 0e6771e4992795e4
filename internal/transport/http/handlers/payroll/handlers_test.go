package payrollhandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/auth"
)

func requestWithMonthParams(year, month string) *http.Request {
	r := httptest.NewRequest("GET", "/payroll/"+year+"/"+month+"/summary", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("year", year)
	rctx.URLParams.Add("month", month)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathMonthYear(t *testing.T) {
	year, month, ok := pathMonthYear(requestWithMonthParams("2026", "3"))

	require.True(t, ok)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 3, month)
}

func TestPathMonthYearRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		year  string
		month string
	}{
		{name: "month zero", year: "2026", month: "0"},
		{name: "month thirteen", year: "2026", month: "13"},
		{name: "two digit year", year: "26", month: "3"},
		{name: "junk year", year: "twenty", month: "3"},
		{name: "junk month", year: "2026", month: "march"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := pathMonthYear(requestWithMonthParams(tc.year, tc.month))
			assert.False(t, ok)
		})
	}
}

func TestMonthKeyPadsMonth(t *testing.T) {
	assert.Equal(t, "2026-03", monthKey(2026, 3))
	assert.Equal(t, "2026-12", monthKey(2026, 12))
}

func TestIsPayrollOperator(t *testing.T) {
	assert.True(t, isPayrollOperator(auth.UserContext{RoleName: auth.RoleHR}))
	assert.True(t, isPayrollOperator(auth.UserContext{RoleName: auth.RoleSystemAdmin}))
	assert.False(t, isPayrollOperator(auth.UserContext{RoleName: auth.RoleManager}))
	assert.False(t, isPayrollOperator(auth.UserContext{RoleName: auth.RoleEmployee}))
}
