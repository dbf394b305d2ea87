package compare

// PlanIDLess orders plan identifiers naturally: purely numeric ids first in
// numeric order, then everything else lexically.
func PlanIDLess(a, b string) bool {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	case an != bn:
		return an
	default:
		return a < b
	}
}

// isNumeric reports whether s is a non-empty run of ASCII digits without
// leading zeros (the canonical numeric plan id form).
func isNumeric(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
