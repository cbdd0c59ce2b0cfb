package custom

import (
	"fmt"
	"strconv"
	"strings"
)

// HexColor is a six digit hex colour, stored lowercase without a leading "#".
type HexColor string

// ParseHexColor validates and normalises a hex colour string. A leading "#" is
// tolerated; anything other than exactly six hex digits is rejected.
func ParseHexColor(s string) (HexColor, error) {
	trimmed := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))

	if len(trimmed) != 6 {
		return "", fmt.Errorf("invalid colour %q: expected 6 hex digits, got %d", s, len(trimmed))
	}

	if _, err := strconv.ParseUint(trimmed, 16, 32); err != nil {
		return "", fmt.Errorf("invalid colour %q: not hexadecimal", s)
	}

	return HexColor(trimmed), nil
}

// Int returns the colour as an integer for use in embeds. An empty or
// malformed value returns 0.
func (c HexColor) Int() int {
	v, err := strconv.ParseUint(string(c), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

// String implements the fmt.Stringer interface.
func (c HexColor) String() string {
	return string(c)
}
