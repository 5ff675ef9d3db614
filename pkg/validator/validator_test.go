package validator

import "testing"

func TestCustomRules(t *testing.T) {
	type payload struct {
		Slug  string `validate:"omitempty,slug"`
		Level string `validate:"omitempty,course_level"`
		Type  string `validate:"omitempty,lesson_type"`
	}

	tests := []struct {
		name    string
		input   payload
		wantErr bool
	}{
		{name: "valid", input: payload{Slug: "defi-101", Level: "advanced", Type: "quiz"}},
		{name: "empty fields", input: payload{}},
		{name: "bad slug", input: payload{Slug: "DeFi 101"}, wantErr: true},
		{name: "trailing dash", input: payload{Slug: "defi-"}, wantErr: true},
		{name: "bad level", input: payload{Level: "expert"}, wantErr: true},
		{name: "bad type", input: payload{Type: "podcast"}, wantErr: true},
	}

	Init()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("  <b>Proof</b>   of\n stake ")
	if got != "Proof of stake" {
		t.Fatalf("expected %q, got %q", "Proof of stake", got)
	}
}

func TestSanitizeHTMLDropsScripts(t *testing.T) {
	got := SanitizeHTML(`<p>Keys</p><script>alert(1)</script>`)
	if got != "<p>Keys</p>" {
		t.Fatalf("expected script to be removed, got %q", got)
	}
}
