package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultFormName  = "default"
	MaxFormNameLen   = 64
	DefaultPage      = 1
	DefaultPageLimit = 50
	MaxPageLimit     = 200

	// MaxPage keeps (page-1)*limit inside an int.
	MaxPage = math.MaxInt/MaxPageLimit + 1
)

// SanitizeFormName lower-cases raw, replaces anything outside [a-z0-9_-]
// with '-', and caps it at MaxFormNameLen. Blank input yields DefaultFormName.
func SanitizeFormName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == MaxFormNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
		n++
	}
	if b.Len() == 0 {
		return DefaultFormName
	}
	return b.String()
}

// Pagination is a clamped page request.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination clamps page to >= 1 and limit to [1, MaxPageLimit].
// Missing or unparsable values fall back to the defaults.
func ParsePagination(rawPage, rawLimit string) Pagination {
	page := parseIntOr(rawPage, DefaultPage)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit := parseIntOr(rawLimit, DefaultPageLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func parseIntOr(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// ClientIP prefers the first X-Forwarded-For hop, then gin's ClientIP.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
