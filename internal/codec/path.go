package codec

import (
	"strconv"
	"strings"
)

// PathSeparator joins the segments of a column path.
const PathSeparator = "."

// JoinPath appends seg to prefix.
func JoinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + PathSeparator + seg
}

// SplitPath returns the segments of a column path.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

func indexSegment(i int) string {
	return strconv.Itoa(i)
}

// isIndex reports whether seg is a non-negative decimal integer.
func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

// compareIndex orders two index segments numerically without parsing them,
// so arbitrarily long digit strings cannot overflow. Equal values spelled
// differently ("01", "1") fall back to byte order.
func compareIndex(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
