package push

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// ASCII only: Unicode case folding would map runes such as U+212A
	// KELVIN SIGN onto ASCII letters.
	channelNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	userIDPattern      = regexp.MustCompile(`^\d+$`)
)

// NormaliseChannelName validates a channel name and returns its canonical
// lower-case form. Names are case-insensitive: "News_1" and "news_1" refer
// to the same channel.
func NormaliseChannelName(name string) (string, error) {
	if !channelNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return strings.ToLower(name), nil
}

// ValidateUserID checks that id is a non-empty string of ASCII digits.
func ValidateUserID(id string) error {
	if !userIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

// IsValidChannelName reports whether name would be accepted by channel
// operations.
func IsValidChannelName(name string) bool {
	_, err := NormaliseChannelName(name)
	return err == nil
}
