package imaging

import (
	"strconv"
	"strings"

	"flux_backend/core"
)

// ParseSize parses a "WxH" size string and bounds-checks both dimensions
// against [min, max]. Returns core.ErrInvalidParameters on any failure so
// the whole request is rejected before work starts.
func ParseSize(size string, min, max int) (width, height int, err error) {
	parts := strings.Split(size, "x")
	if len(parts) != 2 {
		return 0, 0, core.ErrInvalidParameters("invalid size format %q, expected WxH", size)
	}

	width, werr := strconv.Atoi(parts[0])
	height, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil {
		return 0, 0, core.ErrInvalidParameters("invalid size format %q, dimensions must be integers", size)
	}

	if width < min || height < min {
		return 0, 0, core.ErrInvalidParameters("size %q too small, minimum is %dx%d", size, min, min)
	}
	if width > max || height > max {
		return 0, 0, core.ErrInvalidParameters("size %q too large, maximum is %dx%d", size, max, max)
	}

	return width, height, nil
}
