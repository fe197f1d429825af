package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// applyTransform mirrors the original implementation's small transform
// vocabulary: strip, lower, upper, int, float. An unrecognized transform
// name, or a value that fails int/float conversion, passes the value
// through unchanged rather than erroring, since a single malformed cell
// should not abort the whole row.
func applyTransform(value any, transform string) any {
	if value == nil {
		return nil
	}
	s := fmt.Sprintf("%v", value)

	switch transform {
	case "strip":
		return strings.TrimSpace(s)
	case "lower":
		return strings.ToLower(s)
	case "upper":
		return strings.ToUpper(s)
	case "int":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value
		}
		return int64(f)
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value
		}
		return f
	default:
		return value
	}
}
