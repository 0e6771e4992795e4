package shared

import (
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"paycore/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field-level problems across a whole payload so the
// client sees every broken field at once instead of fixing them one by one.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{
		Field:  strings.TrimSpace(field),
		Reason: reason,
	})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum flags values outside the allowed set. Empty values pass; pair it
// with Required when the field is mandatory.
func (v *Validator) Enum(field, value string, allowed []string, reason string) {
	needle := strings.ToLower(strings.TrimSpace(value))
	if needle == "" {
		return
	}
	match := func(candidate string) bool {
		return needle == strings.ToLower(strings.TrimSpace(candidate))
	}
	if !slices.ContainsFunc(allowed, match) {
		v.Add(field, reason)
	}
}

// Date parses a YYYY-MM-DD value, recording an issue when it is malformed.
// The bool reports whether the returned time is usable.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *Validator) NonNegative(field string, value float64) {
	if value < 0 {
		v.Add(field, "must not be negative")
	}
}

func (v *Validator) Month(field string, month int) {
	if month < 1 || month > 12 {
		v.Add(field, "must be between 1 and 12")
	}
}

func (v *Validator) Year(field string, year int) {
	if year < 2000 || year > 2200 {
		v.Add(field, "must be a plausible four digit year")
	}
}

// Reject writes the collected issues as a 400 validation_error envelope and
// reports whether it did, so handlers can bail with a single if.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if len(v.issues) == 0 {
		return false
	}

	issues := make([]ValidationIssue, len(v.issues))
	copy(issues, v.issues)
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Field != issues[j].Field {
			return issues[i].Field < issues[j].Field
		}
		return issues[i].Reason < issues[j].Reason
	})

	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
	return true
}
