package onboarding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"degendecks/internal/domain"

	"github.com/microcosm-cc/bluemonday"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
)

var policy = bluemonday.StrictPolicy()

// SanitizeUsername strips markup and surrounding whitespace from username and
// checks its length.
func SanitizeUsername(username string) (string, error) {
	cleaned := strings.TrimSpace(policy.Sanitize(username))
	n := utf8.RuneCountInString(cleaned)
	if n < minUsernameLength || n > maxUsernameLength {
		return "", fmt.Errorf("%w: %d characters after sanitizing", domain.ErrInvalidUsername, n)
	}
	return cleaned, nil
}
