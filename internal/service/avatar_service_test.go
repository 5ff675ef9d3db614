package service

import (
	"bytes"
	"image/png"
	"testing"
)

func TestInitialAvatarRendersOncePerInitial(t *testing.T) {
	avatars := NewAvatarService()

	first, err := avatars.InitialAvatar("alice")
	if err != nil {
		t.Fatalf("expected avatar, got error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("expected a png, got %v", err)
	}
	if got := img.Bounds().Dx(); got != avatarSize {
		t.Fatalf("expected width %d, got %d", avatarSize, got)
	}

	second, err := avatars.InitialAvatar("Andreas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if &first[0] != &second[0] {
		t.Fatalf("expected names sharing an initial to reuse the rendered image")
	}
	if len(avatars.rendered) != 1 {
		t.Fatalf("expected 1 rendered initial, got %d", len(avatars.rendered))
	}

	if _, err := avatars.InitialAvatar("   "); err != nil {
		t.Fatalf("expected blank names to fall back, got %v", err)
	}
	if _, ok := avatars.rendered["a"]; !ok || len(avatars.rendered) != 1 {
		t.Fatalf("expected blank names to use the anonymous initial")
	}
}

func TestAvatarURLFor(t *testing.T) {
	if got := AvatarURLFor(5, " https://cdn.example.com/a.png "); got != "https://cdn.example.com/a.png" {
		t.Fatalf("expected stored avatar, got %q", got)
	}
	if got := AvatarURLFor(5, ""); got != "/api/v1/users/5/avatar" {
		t.Fatalf("expected generated route, got %q", got)
	}
	if got := AvatarURLFor(0, ""); got != "" {
		t.Fatalf("expected empty url for anonymous, got %q", got)
	}
}
