package services

import "strings"

// NormalizeBarcode reduces a raw scraped barcode string to its canonical
// digit form. Only EAN-8, UPC-A (12), EAN-13 and GTIN-14 lengths are
// usable; a UPC-A is left-zero-padded to 13 digits, and a GTIN-14 whose
// logistic-unit indicator is zero is reduced to its EAN-13 by stripping
// exactly one leading zero. Anything else yields ok=false and the caller
// falls back to name matching.
func NormalizeBarcode(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch len(digits) {
	case 8, 13:
		return digits, true
	case 12:
		return "0" + digits, true
	case 14:
		if digits[0] == '0' {
			return digits[1:], true
		}
		return digits, true
	default:
		return "", false
	}
}
