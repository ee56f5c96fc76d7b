package application

import "strings"

// fixedMask replaces secrets too short to reveal any characters of.
const fixedMask = "****"

// Mask hides the middle of secret. Secrets of four characters or fewer become
// a fixed mask; longer ones keep their first two and last two characters with
// every character in between replaced by '*'. An empty secret stays empty.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= 4 {
		return fixedMask
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
