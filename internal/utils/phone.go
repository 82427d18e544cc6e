package utils

import "strings"

// CleanPhone оставляет только цифры: "+91 98765-43210" -> "919876543210".
func CleanPhone(num string) string {
	var b strings.Builder
	b.Grow(len(num))
	for _, r := range num {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
