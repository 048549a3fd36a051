package events

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ParseFilters reads list query parameters. Unknown parameters are
// ignored; malformed known ones are rejected.
func ParseFilters(values url.Values) (Filters, Page, error) {
	filters := Filters{}
	page := Page{Page: 1, Limit: defaultLimit}

	filters.Search = strings.TrimSpace(values.Get("search"))

	startDate, err := parseDate("startDate", values.Get("startDate"))
	if err != nil {
		return filters, page, err
	}
	endDate, err := parseDate("endDate", values.Get("endDate"))
	if err != nil {
		return filters, page, err
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return filters, page, FilterError{Field: "endDate", Message: "must be on or after startDate"}
	}
	filters.StartDate = startDate
	filters.EndDate = endDate

	filters.IncludeSoftDeleted = strings.EqualFold(strings.TrimSpace(values.Get("includeSoftDeleted")), "true")

	if raw := strings.TrimSpace(values.Get("createdBy")); raw != "" {
		creator, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || creator < 1 {
			return filters, page, FilterError{Field: "createdBy", Message: "must be a positive number"}
		}
		filters.CreatedBy = creator
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return filters, page, FilterError{Field: "page", Message: "must be a positive number"}
		}
		page.Page = parsed
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filters, page, FilterError{Field: "limit", Message: "must be a number"}
		}
		if parsed < 1 || parsed > maxLimit {
			return filters, page, FilterError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxLimit)}
		}
		page.Limit = parsed
	}

	return filters, page, nil
}

func parseDate(field string, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, FilterError{Field: field, Message: "must be ISO8601 date"}
	}
	return &parsed, nil
}
