package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf16"
)

const maxPasswordLength = 10

var (
	ErrMissingCredentials = errors.New("user and password are required")
	ErrInvalidName        = errors.New("name must contain only letters and spaces")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrInvalidPassword    = errors.New("password must have between 1 and 10 characters")
)

var (
	fullNameRegex = regexp.MustCompile(`^[a-zA-Z ]+$`)
	// not anchored: any address-like substring is accepted
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9_]+([.][a-zA-Z0-9_]+)*@[a-zA-Z0-9_]+([.][a-zA-Z0-9_]+)*[.][a-zA-Z]{2,5}`)
)

// international / country prefixes a phone number may start with
var phonePrefixes = []string{"", "54", "549", "0054", "00549"}

func FullName(name string) bool {
	return fullNameRegex.MatchString(name)
}

func Email(email string) bool {
	return emailRegex.MatchString(email)
}

// Password checks the length in UTF-16 code units, the way the browser
// counts it, so characters outside the BMP count twice.
func Password(password string) bool {
	n := 0
	for _, r := range password {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n > 0 && n <= maxPasswordLength
}

// Phone validates an Argentine phone number: an optional 54/549 country
// prefix (itself optionally preceded by 00), an optional trunk 0, a two
// digit area code (11 or [2368] and a digit) and 8 subscriber digits.
// Two extra digits are allowed when a mobile "15" starts within them.
func Phone(phone string) bool {
	for _, prefix := range phonePrefixes {
		if !strings.HasPrefix(phone, prefix) {
			continue
		}
		rest := phone[len(prefix):]
		if phoneLocalValid(rest) {
			return true
		}
		if strings.HasPrefix(rest, "0") && phoneLocalValid(rest[1:]) {
			return true
		}
	}
	return false
}

func phoneLocalValid(s string) bool {
	if len(s) < 2 || !allDigits(s) {
		return false
	}

	if s[:2] != "11" && !strings.ContainsRune("2368", rune(s[0])) {
		return false
	}

	subscriber := s[2:]
	switch len(subscriber) {
	case 8:
		return true
	case 10:
		return strings.Contains(subscriber[:4], "15")
	default:
		return false
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Login only rejects empty fields. The form rules apply to new accounts, so
// any stored user must still be able to log in.
func Login(user, password string) error {
	if user == "" || password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Registration checks the registration form fields and returns the first
// failing rule.
func Registration(name, phoneNumber, email, password string) error {
	if !FullName(name) {
		return ErrInvalidName
	}
	if !Phone(phoneNumber) {
		return ErrInvalidPhoneNumber
	}
	if !Email(email) {
		return ErrInvalidEmail
	}
	if !Password(password) {
		return ErrInvalidPassword
	}
	return nil
}
