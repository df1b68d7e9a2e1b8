package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/manukko/todos/internal/common"
)

const (
	usernameMinLen = 5
	usernameMaxLen = 30
	passwordMinLen = 9
	passwordMaxLen = 30

	// characters that would complicate URLs, shell usage and templating
	usernameForbiddenChars = `$%\/<>:^?!`
)

// CheckUsername enforces the account naming policy.
func CheckUsername(username string) error {
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		return fmt.Errorf("%w: username must be %d to %d characters long",
			common.ErrorValidation, usernameMinLen, usernameMaxLen)
	}
	if strings.ContainsAny(username, usernameForbiddenChars) {
		return fmt.Errorf("%w: username must not contain any of %q",
			common.ErrorValidation, usernameForbiddenChars)
	}
	return nil
}

// CheckPassword enforces the password strength policy.
func CheckPassword(password string) error {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return fmt.Errorf("%w: password must be %d to %d characters long",
			common.ErrorValidation, passwordMinLen, passwordMaxLen)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain at least one letter and one digit",
			common.ErrorValidation)
	}
	return nil
}
