package shared

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultPhoneRegion is used when a number has no country prefix.
const DefaultPhoneRegion = "KE"

// NormalizePhone parses raw in region and returns the E.164 digits without
// the leading plus, e.g. 254712345678.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", Invalid("phone", "is required")
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", Invalid("phone", err.Error())
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", Invalid("phone", "is not a valid number")
	}
	return strings.TrimPrefix(libphonenumber.Format(num, libphonenumber.E164), "+"), nil
}
