package shared

import "time"

// dateLayouts are tried in order; the API accepts full timestamps and
// bare calendar dates interchangeably.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate turns an optional date string into a time. Empty input maps
// to the zero time so callers can treat the filter as absent.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range dateLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}
