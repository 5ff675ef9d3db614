package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"cryptoacademy-backend/internal/models"
)

const avatarSize = 256

// AvatarURLFor returns the stored avatar or, when there is none, the route
// serving the generated initial avatar for the user.
func AvatarURLFor(userID uint, stored string) string {
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored
	}
	if userID == 0 {
		return ""
	}
	return fmt.Sprintf("/api/v1/users/%d/avatar", userID)
}

// AvatarService renders initial-letter PNG avatars for users without a
// picture. Each initial is rendered once and kept in memory.
type AvatarService struct {
	mu       sync.Mutex
	face     font.Face
	rendered map[string][]byte
}

func NewAvatarService() *AvatarService {
	return &AvatarService{rendered: make(map[string][]byte)}
}

// InitialAvatar returns the PNG for the first letter of name.
func (s *AvatarService) InitialAvatar(name string) ([]byte, error) {
	glyph, key := resolveInitial(name)
	if glyph == "" {
		glyph, key = resolveInitial(models.User{}.DisplayName())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.rendered[key]; ok {
		return cached, nil
	}

	if s.face == nil {
		face, err := loadMonoFace(float64(avatarSize) * 0.5)
		if err != nil {
			return nil, fmt.Errorf("failed to load avatar font: %w", err)
		}
		s.face = face
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, renderInitial(s.face, glyph)); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	s.rendered[key] = buf.Bytes()
	return s.rendered[key], nil
}

func resolveInitial(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ""
	}

	r, _ := utf8.DecodeRuneInString(trimmed)
	if r == utf8.RuneError {
		return "", ""
	}

	glyph := strings.ToUpper(string(r))
	key := strings.ToLower(glyph)
	if len(key) != 1 || !isASCIIAlphaNumeric(key[0]) {
		key = fmt.Sprintf("u%x", r)
	}
	return glyph, key
}

func isASCIIAlphaNumeric(value byte) bool {
	return (value >= 'a' && value <= 'z') || (value >= '0' && value <= '9')
}

func renderInitial(face font.Face, letter string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	background := color.RGBA{R: 247, G: 147, B: 26, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	bounds, _ := font.BoundString(face, letter)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	textHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	x := (avatarSize - textWidth) / 2
	y := (avatarSize+textHeight)/2 - int(math.Round(avatarSize*0.05))
	d.Dot = fixed.P(x, y)
	d.DrawString(letter)
	return img
}

func loadMonoFace(size float64) (font.Face, error) {
	parsed, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
