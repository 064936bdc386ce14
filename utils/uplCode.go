package utils

import (
	"strconv"
	"strings"
)

// Numeric UPL codes carry a trailing check digit so a mistyped or
// misread pallet label fails fast instead of hitting another UPL.
//
//	xxx|x
//	---  \
//	 |    check digit
//	  \
//	   base code 1 -> +infinite

func checkDigit(digits []int) int {
	sum := 0
	n := len(digits)
	for i, d := range digits {
		// weight 1 for the last digit, increasing towards the front
		sum += d * (n - i)
	}
	remainder := 10 - sum%10
	if remainder == 10 {
		return 0
	}
	return remainder
}

func digitsOf(n uint64) []int {
	s := strconv.FormatUint(n, 10)
	out := make([]int, len(s))
	for i, c := range s {
		out[i] = int(c - '0')
	}
	return out
}

// NewUplCode mints a labelled UPL code from a base number by appending
// its check digit.
func NewUplCode(base uint64) string {
	return strconv.FormatUint(base, 10) + strconv.Itoa(checkDigit(digitsOf(base)))
}

// IsNumericUplCode reports whether the given id looks like a printed
// UPL code (digits only). Non-numeric ids (uuids) are not label codes
// and carry no check digit.
func IsNumericUplCode(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidateUplCode checks the trailing check digit of a numeric UPL code.
func ValidateUplCode(code string) error {
	code = strings.TrimSpace(code)
	if len(code) < 2 || !IsNumericUplCode(code) {
		return ErrorInvalidUplCode
	}
	base := code[:len(code)-1]
	last := int(code[len(code)-1] - '0')
	digits := make([]int, len(base))
	for i := range base {
		digits[i] = int(base[i] - '0')
	}
	if checkDigit(digits) != last {
		return ErrorInvalidUplCode
	}
	return nil
}
