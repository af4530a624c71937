package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

const maxUserNameGraphemes = 256

var invalidUserNameChars = []rune{'(', ')', '{', '}', '<', '>', '\\', '/', '[', ']'}

// UserName is a validated subscriber display name.
type UserName struct {
	value string
}

// ParseUserName rejects empty/whitespace-only names, names longer than 256
// grapheme clusters, and any of the characters ( ) { } < > \ / [ ].
func ParseUserName(s string) (UserName, error) {
	if strings.TrimSpace(s) == "" {
		return UserName{}, fmt.Errorf("%w: empty username is not allowed", apperrors.ErrInvalidUserName)
	}
	if graphemeCount(s) > maxUserNameGraphemes {
		return UserName{}, fmt.Errorf("%w: username too long", apperrors.ErrInvalidUserName)
	}
	for _, c := range s {
		for _, bad := range invalidUserNameChars {
			if c == bad {
				return UserName{}, fmt.Errorf("%w: username contains invalid char", apperrors.ErrInvalidUserName)
			}
		}
	}
	return UserName{value: s}, nil
}

func (u UserName) String() string { return u.value }

// graphemeCount approximates Unicode grapheme-cluster count by counting
// runes. The pack carries no UAX#29 segmentation library (golang.org/x/text
// covers normalization and encodings, not grapheme boundaries), so this is
// the closest stdlib-only approximation; it undercounts only for combining
// marks and ZWJ sequences, which is not a concern for the plain-ASCII/Latin
// usernames this service expects.
func graphemeCount(s string) int {
	return len([]rune(s))
}
