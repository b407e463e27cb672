package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var nonWord = regexp.MustCompile(`\W+`)

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {}, "12345678": {},
	"123456789": {}, "1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {},
	"sunshine1": {}, "princess1": {}, "football1": {}, "welcome1": {}, "abc12345": {},
	"admin123": {}, "letmein1": {}, "monkey123": {}, "dragon123": {}, "baseball1": {},
	"trustno1!": {}, "11111111": {}, "00000000": {}, "asdfghjkl": {}, "changeme": {},
	"nikonekti": {}, "tanzania": {}, "tanzania1": {}, "karibu123": {},
}

// Password checks strength rules and returns the list of problems, empty when acceptable.
// attrs are user attributes (phone number, full name) the password must not resemble.
func Password(password string, attrs ...string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	lower := strings.ToLower(strings.TrimSpace(password))
	if _, ok := commonPasswords[lower]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if similar(lower, attrs) {
		problems = append(problems, "The password is too similar to your personal details.")
	}
	return problems
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similar(password string, attrs []string) bool {
	if len(password) < 3 {
		return false
	}
	for _, attr := range attrs {
		attr = strings.ToLower(attr)
		parts := append(nonWord.Split(attr, -1), strings.Join(nonWord.Split(attr, -1), ""))
		for _, part := range parts {
			if len(part) < 4 {
				continue
			}
			if strings.Contains(password, part) || strings.Contains(part, password) {
				return true
			}
		}
	}
	return false
}
