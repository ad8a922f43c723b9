package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses #RRGGBB or #AARRGGBB.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return nil, fmt.Errorf("hex color %q must start with #", s)
	}
	h := strings.TrimPrefix(s, "#")

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("hex color %q: %w", s, err)
	}

	switch len(h) {
	case 6:
		return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xFF}, nil
	case 8:
		return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24)}, nil
	}
	return nil, fmt.Errorf("hex color %q: want #RRGGBB or #AARRGGBB", s)
}
