package registry

import (
	"strings"
	"testing"
)

func TestRandomCodeLengthAndAlphabet(t *testing.T) {
	for _, n := range []int{6, 8} {
		code, err := randomCode(n)
		if err != nil {
			t.Fatalf("randomCode(%d): %v", n, err)
		}
		if len(code) != n {
			t.Errorf("len = %d, want %d", len(code), n)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Errorf("code %q contains %q outside the alphabet", code, ch)
			}
		}
	}
}

func TestCodePattern(t *testing.T) {
	valid := []string{"a", "promo1", "ABC123xyz", strings.Repeat("z", 20)}
	for _, c := range valid {
		if !codePattern.MatchString(c) {
			t.Errorf("pattern rejected valid code %q", c)
		}
	}

	invalid := []string{"", "has space", "under_score", "da-sh", strings.Repeat("z", 21), "naïve"}
	for _, c := range invalid {
		if codePattern.MatchString(c) {
			t.Errorf("pattern accepted invalid code %q", c)
		}
	}
}
