package config

import (
	"os"
	"strings"
)

// StrictUplCodes requires caller-supplied numeric UPL ids to carry a valid
// check digit. Non-numeric ids (uuids) are always accepted.
//
// Set via env:
// - STRICT_UPL_CODES=true
func StrictUplCodes() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_UPL_CODES")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
