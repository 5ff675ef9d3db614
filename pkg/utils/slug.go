package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

var (
	nonSlugChars = regexp.MustCompile("[^a-z0-9]+")

	symbolWords = map[rune]string{
		'₿': " btc ",
		'Ξ': " eth ",
		'$': " usd ",
		'€': " eur ",
		'&': " and ",
		'%': " percent ",
		'+': " plus ",
		'@': " at ",
	}
)

// GenerateSlug folds diacritics, spells out currency symbols and joins the
// remaining words with dashes.
func GenerateSlug(text string) string {
	text = spellSymbols(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	text, _, _ = transform.String(t, text)

	text = strings.ToLower(text)
	text = nonSlugChars.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")

	if len(text) > maxSlugLength {
		text = strings.TrimRight(text[:maxSlugLength], "-")
	}
	return text
}

// UniqueSlug returns base, or base with the smallest numeric suffix that
// exists reports as free.
func UniqueSlug(base string, exists func(slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "course"
	}
	candidate := base
	for attempt := 2; ; attempt++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if attempt > 1000 {
			return "", fmt.Errorf("no free slug for %q", base)
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}

func spellSymbols(text string) string {
	var result strings.Builder
	for _, char := range text {
		if replacement, ok := symbolWords[char]; ok {
			result.WriteString(replacement)
		} else {
			result.WriteRune(char)
		}
	}
	return result.String()
}
