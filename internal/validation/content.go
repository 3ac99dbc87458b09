package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxPostLength     = 50000
	MaxCommentLength  = 10000
	MaxBioLength      = 500
	MaxLocationLength = 120
	MaxWebsiteLength  = 255
	MaxAvatarLength   = 512
)

// ValidateContent rejects blank text and text longer than max runes.
func ValidateContent(field, content string, max int) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(content) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

// ValidateProfile checks the editable profile fields. Empty values are allowed.
func ValidateProfile(bio, location, website, avatarURL string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must be at most %d characters", MaxBioLength)
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return fmt.Errorf("location must be at most %d characters", MaxLocationLength)
	}
	if err := validateURL("website", website, MaxWebsiteLength); err != nil {
		return err
	}
	return validateURL("avatar_url", avatarURL, MaxAvatarLength)
}

func validateURL(field, raw string, max int) error {
	if raw == "" {
		return nil
	}
	if len(raw) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	return nil
}
