package css

import (
	"strconv"
	"strings"
)

// DefaultMaxLength is the ceiling for converted lengths in points (5.5in),
// larger values would push content off the printable page.
const DefaultMaxLength = 5.5 * 72

// Points per unit. Font relative units assume 16px root size.
var unitToPoints = map[string]float64{
	"px":  0.75,
	"pt":  1,
	"in":  72,
	"pc":  12,
	"cm":  28.3465,
	"mm":  2.83465,
	"em":  12,
	"rem": 12,
}

// namedFontSizes maps CSS absolute-size keywords to lengths.
var namedFontSizes = map[string]string{
	"xx-small": "9px",
	"x-small":  "10px",
	"small":    "13px",
	"medium":   "16px",
	"large":    "18px",
	"x-large":  "24px",
	"xx-large": "32px",
}

// ConvertUnit converts CSS length to points clamped to DefaultMaxLength.
// Percentages are returned as is. False is returned for unsupported units and
// garbage, caller is expected to ignore such declaration.
func ConvertUnit(value string) (float64, bool) {
	return ConvertUnitMax(value, DefaultMaxLength)
}

// ConvertUnitMax is ConvertUnit with explicit ceiling. Ceiling <= 0 disables
// clamping.
func ConvertUnitMax(value string, ceiling float64) (float64, bool) {
	num, unit, ok := SplitLength(value)
	if !ok {
		return 0, false
	}

	var pt float64
	switch unit {
	case "":
		// only zero may be unitless
		if num != 0 {
			return 0, false
		}
	case "%":
		pt = num
	default:
		factor, known := unitToPoints[unit]
		if !known {
			return 0, false
		}
		pt = num * factor
	}

	if ceiling > 0 && pt > ceiling {
		pt = ceiling
	}
	return pt, true
}

// ConvertFromPoints converts points back into requested unit.
func ConvertFromPoints(pt float64, unit string) (float64, bool) {
	unit = strings.ToLower(unit)
	if unit == "%" {
		return pt, true
	}
	factor, ok := unitToPoints[unit]
	if !ok {
		return 0, false
	}
	return pt / factor, true
}

// SplitLength splits "12.5px" into number and lower-cased unit.
func SplitLength(value string) (float64, string, bool) {
	value = strings.ToLower(strings.TrimSpace(stripImportant(value)))
	if value == "" {
		return 0, "", false
	}

	end := 0
	for end < len(value) {
		ch := value[end]
		if (ch >= '0' && ch <= '9') || ch == '.' || ((ch == '-' || ch == '+') && end == 0) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, "", false
	}

	num, err := strconv.ParseFloat(value[:end], 64)
	if err != nil {
		return 0, "", false
	}
	return num, strings.TrimSpace(value[end:]), true
}

// FontSize resolves font-size value including named sizes to points.
func FontSize(value string) (float64, bool) {
	value = strings.ToLower(strings.TrimSpace(stripImportant(value)))
	if named, ok := namedFontSizes[value]; ok {
		value = named
	}
	if strings.HasSuffix(value, "%") {
		// relative to default 12pt
		num, _, ok := SplitLength(value)
		if !ok {
			return 0, false
		}
		return 12 * num / 100, true
	}
	pt, ok := ConvertUnit(value)
	if !ok || pt <= 0 {
		return 0, false
	}
	return pt, true
}
