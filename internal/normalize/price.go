package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

var (
	currencyCodes   = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|INR|PKR|AED|CAD|AUD|RS)\b\.?`)
	currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "₹", "", ",", "", " ", "", " ", "", "\t", "")
)

// ParsePrice coerces an extracted price into a positive amount rounded to
// cents. Strings may carry currency symbols or codes, thousands separators
// and a trailing "/-". Zero, negative, non-finite and unparsable values are
// errors.
func ParsePrice(v any) (float64, error) {
	var d decimal.Decimal
	switch p := v.(type) {
	case nil:
		return 0, eris.New("price: missing")
	case json.Number:
		n, err := decimal.NewFromString(p.String())
		if err != nil {
			return 0, eris.Wrapf(err, "price: parse %q", p.String())
		}
		d = n
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, eris.Errorf("price: non-finite value %v", p)
		}
		d = decimal.NewFromFloat(p)
	case float32:
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return 0, eris.Errorf("price: non-finite value %v", p)
		}
		d = decimal.NewFromFloat32(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int64:
		d = decimal.NewFromInt(p)
	case string:
		n, err := parsePriceString(p)
		if err != nil {
			return 0, err
		}
		d = n
	default:
		return 0, eris.Errorf("price: unsupported type %T", v)
	}

	d = d.Round(2)
	if !d.IsPositive() {
		return 0, eris.Errorf("price: non-positive value %s", d.String())
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, eris.Errorf("price: value %s out of range", d.String())
	}
	return f, nil
}

func parsePriceString(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = currencyCodes.ReplaceAllString(clean, "")
	clean = currencySymbols.Replace(clean)
	clean = strings.TrimSuffix(clean, "/-")
	clean = strings.TrimSuffix(clean, ".-")
	if clean == "" {
		return decimal.Zero, eris.Errorf("price: no amount in %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, eris.Errorf("price: cannot parse %q", s)
	}
	return d, nil
}
