package model

import (
	"regexp"
	"strings"

	"classifieds-marketplace/internal/domain"
)

var (
	localMobile   = regexp.MustCompile(`^0[17]\d{8}$`)
	countryMobile = regexp.MustCompile(`^254[17]\d{8}$`)
	phoneNoise    = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizePhone accepts 07XXXXXXXX, 01XXXXXXXX, 2547XXXXXXXX, 2541XXXXXXXX
// and the same with a leading + (spaces and dashes ignored) and returns
// 254XXXXXXXXX. A + is only valid in front of the 254 country code.
func NormalizePhone(raw string) (string, error) {
	s := phoneNoise.Replace(strings.TrimSpace(raw))
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if !countryMobile.MatchString(rest) {
			return "", domain.ErrInvalidPhoneNumber
		}
		return rest, nil
	}
	switch {
	case localMobile.MatchString(s):
		return "254" + s[1:], nil
	case countryMobile.MatchString(s):
		return s, nil
	default:
		return "", domain.ErrInvalidPhoneNumber
	}
}
