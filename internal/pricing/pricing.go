// Package pricing holds the derived-price arithmetic shared by submission,
// owner edits and the listing views. Every function here is pure and never
// panics on bad input.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Thousand int64 = 1_000
	Lakh     int64 = 1_00_000
	Crore    int64 = 1_00_00_000
)

// ErrPriceOverflow is returned when rate × area does not fit in a price.
var ErrPriceOverflow = errors.New("price is too large")

var indianPrinter = message.NewPrinter(language.MustParse("en-IN"))

// AmountInWords renders n using the Indian crore/lakh/thousand units,
// e.g. 45000000 -> "4 Crore 50 Lakh". Zero and negative amounts render as "".
// Display only; never feed the result back into a computation.
func AmountInWords(n int64) string {
	if n <= 0 {
		return ""
	}
	switch {
	case n >= Crore:
		crores := n / Crore
		lakhs := (n % Crore) / Lakh
		if lakhs > 0 {
			return fmt.Sprintf("%d Crore %d Lakh", crores, lakhs)
		}
		return fmt.Sprintf("%d Crore", crores)
	case n >= Lakh:
		lakhs := n / Lakh
		thousands := (n % Lakh) / Thousand
		if thousands > 0 {
			return fmt.Sprintf("%d Lakh %d Thousand", lakhs, thousands)
		}
		return fmt.Sprintf("%d Lakh", lakhs)
	}
	return indianPrinter.Sprintf("%d", n)
}

// PricePerArea returns price/area rounded half up, or 0 when area is not positive.
func PricePerArea(price, area int64) int64 {
	if area <= 0 || price <= 0 {
		return 0
	}
	q, r := price/area, price%area
	if r >= area-r {
		q++
	}
	return q
}

// PriceFromRate recomputes the total price from a per-sq-ft rate. Without a
// resolved area the current price is returned untouched.
func PriceFromRate(rate, area, current int64) (int64, error) {
	if area <= 0 {
		return current, nil
	}
	if rate <= 0 {
		return 0, nil
	}
	if rate > math.MaxInt64/area {
		return 0, ErrPriceOverflow
	}
	return rate * area, nil
}

// ResolveArea picks the authoritative area: super built-up, then built-up,
// then carpet. Missing or non-positive measurements are skipped.
func ResolveArea(carpet, builtUp, superBuiltUp *int64) int64 {
	for _, v := range []*int64{superBuiltUp, builtUp, carpet} {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

// ParseNumber reads a user-typed integer. Grouping commas, underscores and
// blanks are ignored and fractions are truncated. ok is false for blank or
// unparsable input.
func ParseNumber(s string) (v int64, ok bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

// ParseAmount is ParseNumber clamped to a non-negative amount; anything
// unusable becomes 0.
func ParseAmount(s string) int64 {
	v, ok := ParseNumber(s)
	if !ok || v < 0 {
		return 0
	}
	return v
}
