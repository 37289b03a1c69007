// Package matching normalizes listings, embeds and groups them by
// similarity, and ranks the resulting groups.
package matching

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/avishek-m/pricecompare/internal/domain"
)

// digitRunPattern matches the first contiguous run of digits in a string,
// after thousands separators have been stripped.
var digitRunPattern = regexp.MustCompile(`\d+`)

// ParsePrice extracts the integer price from a platform's raw price
// presentation. Thousands separators (commas) are stripped first, then the
// first run of digits is taken as the price; this deliberately discards
// decimals and any digit groups beyond the first (spec §9 Q1: parity with
// the source's first-digit-run behavior was chosen over full decimal
// parsing). Returns ok=false when no digit run exists at all.
func ParsePrice(raw string) (price int64, ok bool) {
	stripped := strings.ReplaceAll(raw, ",", "")
	match := digitRunPattern.FindString(stripped)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var (
	multiplyPackPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[x×]\s*(\d+(?:\.\d+)?)\s*([a-z]+)$`)
	valueUnitPattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]+)$`)
	bareIntegerPattern  = regexp.MustCompile(`^(\d+(?:\.\d+)?)$`)
)

// ParseQuantity normalizes a platform's raw quantity presentation into a
// canonical {value, unit}. Recognizes three forms: "n × m unit" packs
// (value = n·m in the unit's canonical form), "v unit", and a bare integer
// (treated as a count). Liters convert to milliliters ×1000, kilograms to
// grams ×1000. Unrecognized input yields Ok=false.
func ParseQuantity(raw string) domain.ParsedQuantity {
	q := domain.ParsedQuantity{Raw: raw}

	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "ltr", "l")
	s = strings.ReplaceAll(s, "gm", "g")
	s = collapseSpaces(s)

	if m := multiplyPackPattern.FindStringSubmatch(s); m != nil {
		n, errN := strconv.ParseFloat(m[1], 64)
		size, errSize := strconv.ParseFloat(m[2], 64)
		unit, errUnit := canonicalUnit(m[3])
		if errN == nil && errSize == nil && errUnit == nil {
			q.Value = n * size * unitMultiplier(m[3])
			q.Unit = unit
			q.Ok = true
			return q
		}
	}

	if m := valueUnitPattern.FindStringSubmatch(s); m != nil {
		v, errV := strconv.ParseFloat(m[1], 64)
		unit, errUnit := canonicalUnit(m[2])
		if errV == nil && errUnit == nil {
			q.Value = v * unitMultiplier(m[2])
			q.Unit = unit
			q.Ok = true
			return q
		}
	}

	if m := bareIntegerPattern.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			q.Value = v
			q.Unit = domain.UnitCount
			q.Ok = true
			return q
		}
	}

	return q
}

// canonicalUnit maps a raw unit token to its canonical unit, erroring on
// anything unrecognized.
func canonicalUnit(raw string) (domain.QuantityUnit, error) {
	switch raw {
	case "ml", "l":
		return domain.UnitMilliliters, nil
	case "g", "kg":
		return domain.UnitGrams, nil
	default:
		return "", errUnrecognizedUnit
	}
}

// unitMultiplier returns the factor applied to the raw numeric value to
// express it in its canonical unit: liters and kilograms scale by 1000.
func unitMultiplier(raw string) float64 {
	switch raw {
	case "l", "kg":
		return 1000
	default:
		return 1
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var errUnrecognizedUnit = errUnit{}

type errUnit struct{}

func (errUnit) Error() string { return "unrecognized unit" }

// PriceClose reports whether two prices are within the given symmetric
// relative tolerance, measured against the lower of the two prices (spec
// §4.6): 100 vs 120 is 20% apart, 100 vs 121 is 21%. Unparsed prices are represented as 0, the
// same sentinel spec §4.6 uses: both zero is a match, exactly one zero is a
// mismatch.
func PriceClose(a, b int64, tolerance float64) bool {
	if a == 0 && b == 0 {
		return true
	}
	if a == 0 || b == 0 {
		return false
	}
	diff := float64(a - b)
	if diff < 0 {
		diff = -diff
	}
	lower := float64(a)
	if b < a {
		lower = float64(b)
	}
	return diff/lower <= tolerance
}

// QuantitySimilar reports whether two parsed quantities are within the
// given relative tolerance in the same canonical unit (spec §4.6). An
// unparsed quantity on either side never matches; both legitimately
// zero-valued (in the same unit) is a match.
func QuantitySimilar(a, b domain.ParsedQuantity, tolerance float64) bool {
	if !a.Ok || !b.Ok {
		return false
	}
	if a.Unit != b.Unit {
		return false
	}
	if a.Value == 0 && b.Value == 0 {
		return true
	}
	if a.Value == 0 || b.Value == 0 {
		return false
	}
	diff := a.Value - b.Value
	if diff < 0 {
		diff = -diff
	}
	avg := (a.Value + b.Value) / 2
	return diff/avg <= tolerance
}
