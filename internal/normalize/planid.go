package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// planLabels are prefixes stripped from plan identifiers. Each must be
// followed by a non-letter (or end the string) to count as a label.
var planLabels = []string{"PLAN", "NUMBER", "NO.", "NO", "#", ":"}

// CanonicalPlanID normalizes a plan identifier so that the same plan written
// differently across documents collapses to one key:
//
//   - trim and upper-case
//   - drop leading "PLAN", "NO.", "NUMBER", "#" labels
//   - keep only letters, digits, '-', '.', '/'
//   - trim separators from both ends
//   - drop an all-zero fraction from numeric identifiers ("4101.0")
//   - strip leading zeros from purely numeric identifiers
//
// "Plan #04101", " 4101 ", "4101.0" and "plan no. 4101" all become "4101".
func CanonicalPlanID(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = stripLabels(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '/' {
			b.WriteRune(r)
		}
	}
	s = strings.Trim(b.String(), "-./")

	if whole, frac, ok := strings.Cut(s, "."); ok && whole != "" && isDigits(whole) && frac != "" && strings.Trim(frac, "0") == "" {
		s = whole
	}
	if s != "" && isDigits(s) {
		s = strings.TrimLeft(s, "0")
		if s == "" {
			s = "0"
		}
	}
	return s
}

func stripLabels(s string) string {
	for {
		s = strings.TrimSpace(s)
		stripped := false
		for _, label := range planLabels {
			if !strings.HasPrefix(s, label) {
				continue
			}
			rest := s[len(label):]
			lastIsLetter := unicode.IsLetter(rune(label[len(label)-1]))
			if lastIsLetter && rest != "" && unicode.IsLetter(rune(rest[0])) {
				continue
			}
			s = rest
			stripped = true
			break
		}
		if !stripped {
			return s
		}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// identString renders an extracted identifier (plan id or vendor) as text.
// nil yields "". Objects, arrays and booleans cannot be coerced.
func identString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return formatNumber(f), nil
		}
		return x.String(), nil
	case float64:
		return formatNumber(x), nil
	case float32:
		return formatNumber(float64(x)), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", eris.Errorf("unsupported identifier type %T", v)
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// scalarString is identString that also accepts booleans.
func scalarString(v any) (string, error) {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b), nil
	}
	return identString(v)
}
