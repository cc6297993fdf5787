package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatTime formats t for storage. The zero time is stored as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a stored timestamp. "" yields the zero time.
func parseTime(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// formatPages stores page numbers as a comma-separated list.
func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func parsePages(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	pages := make([]int, len(parts))
	for i, s := range parts {
		p, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse failed_pages: %w", err)
		}
		pages[i] = p
	}
	return pages, nil
}
