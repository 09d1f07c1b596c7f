package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	DefaultRegion        = "ID"
	indonesiaCountryCode = 62
)

var reIndonesianMobile = regexp.MustCompile(`^08[1-9][0-9]{7,10}$`)

// NormalizePhone returns the national form of an Indonesian number, E.164 for
// any other country, and "" when phone cannot be parsed.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, DefaultRegion)
	if err != nil {
		return ""
	}
	if parsed.GetCountryCode() != indonesiaCountryCode {
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return "0" + phonenumbers.GetNationalSignificantNumber(parsed)
}

func IsIndonesianMobile(phone string) bool {
	return reIndonesianMobile.MatchString(phone)
}
