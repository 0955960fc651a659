package domain

import "regexp"

var (
	// Телефон: 11 цифр, начинается с 1 (формат исходной платформы).
	phoneRe = regexp.MustCompile(`^1[0-9]{10}$`)
	codeRe  = regexp.MustCompile(`^[0-9]{6}$`)
)

func ValidPhone(s string) bool { return phoneRe.MatchString(s) }
func ValidCode(s string) bool  { return codeRe.MatchString(s) }
