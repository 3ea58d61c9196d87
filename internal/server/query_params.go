package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// parseTimeParam accepts RFC3339 timestamps and bare dates. A bare date is
// interpreted as midnight UTC.
func parseTimeParam(c *gin.Context, name string) (time.Time, *ValidationError) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, &ValidationError{
		Field:   name,
		Message: "must be an RFC3339 timestamp or a YYYY-MM-DD date",
	}
}

func parseIntParam(c *gin.Context, name string) (int, *ValidationError) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, &ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return parsed, nil
}

func parseBoolParam(c *gin.Context, name string) (bool, *ValidationError) {
	raw := strings.ToLower(strings.TrimSpace(c.Query(name)))
	switch raw {
	case "":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, &ValidationError{Field: name, Message: "must be a boolean"}
	}
}

func requireParam(c *gin.Context, name string) (string, *ValidationError) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", &ValidationError{Field: name, Message: "is required"}
	}
	return raw, nil
}
