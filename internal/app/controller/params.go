package controller

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout = "2006-01-02"
	maxPage    = 100000
)

// parseDate accepts either a calendar date (2006-01-02) or an RFC3339 timestamp.
func parseDate(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", value)
	}
	return t, false, nil
}

// parseOptionalDate parses a query date. A date-only upper bound covers the whole day.
func parseOptionalDate(value string, endOfDay bool) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, dateOnly, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	if dateOnly && endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// parsePagination reads page/limit; zero values fall back to service defaults.
func parsePagination(c *gin.Context) (page, limit int, err error) {
	if raw := c.Query("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page < 1 || page > maxPage {
			return 0, 0, fmt.Errorf("invalid page %q", raw)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q", raw)
		}
	}
	return page, limit, nil
}

func exportFilename(prefix string) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("20060102_150405"))
}
