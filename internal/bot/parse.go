package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDArg extracts a positive number from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("number is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return id, nil
}

// ParseLimitArg parses an optional count, returning def when args is empty.
func ParseLimitArg(args string, def, limit int) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || n < 1 || n > limit {
		return 0, fmt.Errorf("count must be between 1 and %d", limit)
	}
	return n, nil
}

// ParseKeywordArg returns the keyword of /include and /exclude: the whole
// argument string, so phrases are kept intact.
func ParseKeywordArg(args string) (string, error) {
	word := strings.Join(strings.Fields(args), " ")
	if word == "" || word == "re:" {
		return "", fmt.Errorf("keyword is required")
	}
	return word, nil
}
