package util

import "strconv"

const (
	DefaultPageSize = 9
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*MaxPageSize well inside int.
	MaxPage = 1 << 20
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// ParseUintDefault treats empty, malformed and zero input as absent.
func ParseUintDefault(s string, def uint) uint {
	if v, err := strconv.ParseUint(s, 10, 0); err == nil && v > 0 {
		return uint(v)
	}
	return def
}

// Calculate normalizes page and size and returns the row offset.
// Sizes outside 1..MaxPageSize fall back to DefaultPageSize; pages past
// MaxPage are pinned there, which lands beyond any real catalog.
func Calculate(page, size int) (p, offset, limit int) {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, (page - 1) * size, size
}
