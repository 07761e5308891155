// Package validation checks user-supplied board input before it reaches the services.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength       = 255
	MaxBackgroundURL    = 500
	MaxBackgroundColor  = 20
	MaxCommentLength    = 10000
	MaxAttachmentURL    = 1000
	MinSearchQueryRunes = 2
)

var (
	hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	slugStrip     = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidateName checks a required display name (board, column, label, checklist).
func ValidateName(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return fmt.Errorf("%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}

// ValidateHexColor accepts an empty value or a #rrggbb color.
func ValidateHexColor(color string) error {
	if color == "" || hexColorRegex.MatchString(color) {
		return nil
	}
	return fmt.Errorf("color must be a hex value like #1d4ed8")
}

// ValidateBackground checks the optional board background fields.
func ValidateBackground(bgURL, bgColor *string) error {
	if bgURL != nil && *bgURL != "" {
		if len(*bgURL) > MaxBackgroundURL {
			return fmt.Errorf("background_url must be at most %d characters", MaxBackgroundURL)
		}
		u, err := url.Parse(*bgURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("background_url must be an absolute http(s) URL")
		}
	}
	if bgColor != nil && len(*bgColor) > MaxBackgroundColor {
		return fmt.Errorf("background_color must be at most %d characters", MaxBackgroundColor)
	}
	return nil
}

// ValidateAttachmentURL checks the location of a file held by the media service.
func ValidateAttachmentURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	if len(raw) > MaxAttachmentURL {
		return fmt.Errorf("url must be at most %d characters", MaxAttachmentURL)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	return nil
}

// ValidateSearchQuery enforces the minimum query length of search endpoints.
func ValidateSearchQuery(q string) error {
	if utf8.RuneCountInString(strings.TrimSpace(q)) < MinSearchQueryRunes {
		return fmt.Errorf("query must be at least %d characters", MinSearchQueryRunes)
	}
	return nil
}

// ValidateComment checks comment content.
func ValidateComment(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return fmt.Errorf("content must be at most %d characters", MaxCommentLength)
	}
	return nil
}

// Slugify derives a column slug from its name. Names without any ASCII
// letters or digits produce "column".
func Slugify(name string) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "column"
	}
	return slug
}
