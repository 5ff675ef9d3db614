package utils

import (
	"strings"
	"testing"
)

func TestGenerateSlug(t *testing.T) {
	tests := map[string]string{
		"Bitcoin Basics":               "bitcoin-basics",
		"  DeFi: Lending & Borrowing ": "defi-lending-and-borrowing",
		"Crème brûlée of ₿":            "creme-brulee-of-btc",
		"---":                          "",
	}
	for input, want := range tests {
		if got := GenerateSlug(input); got != want {
			t.Fatalf("GenerateSlug(%q): expected %q, got %q", input, want, got)
		}
	}
}

func TestGenerateSlugTruncates(t *testing.T) {
	got := GenerateSlug(strings.Repeat("ab ", 60))
	if len(got) > maxSlugLength {
		t.Fatalf("expected slug of at most %d chars, got %d", maxSlugLength, len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("expected no trailing dash, got %q", got)
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"wallets": true, "wallets-2": true}
	got, err := UniqueSlug("wallets", func(slug string) (bool, error) {
		return taken[slug], nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "wallets-3" {
		t.Fatalf("expected wallets-3, got %q", got)
	}
}
