// Package email normalizes registrant contact addresses and derives greeting
// names for notices.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize lower-cases and validates a bare address. Display-name forms such
// as "Ana <ana@example.com>" are rejected.
func Normalize(addr string) (string, bool) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return "", false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || parsed.Name != "" {
		return "", false
	}
	return addr, true
}

// GreetingName returns the first word of fullName, or a capitalized name
// derived from the local part of addr when fullName is blank.
func GreetingName(fullName, addr string) string {
	if fields := strings.Fields(fullName); len(fields) > 0 {
		return fields[0]
	}
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}
	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "participante"
	}
	runes := []rune(parts[0])
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
