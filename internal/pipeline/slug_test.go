package pipeline

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"  Open Source Summit!! 2026  ", "open-source-summit-2026"},
		{"GitHub Summit US 2025", "github-summit-us-2025"},
		{"AI & ML Conference 2024", "ai-ml-conference-2024"},
		{"Cloud Computing-expo-2024", "cloud-computing-expo-2024"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"multiple   spaces\tand\nlines", "multiple-spaces-and-lines"},
		{"hyphen - surrounded", "hyphen-surrounded"},
		{"Café Über Meetup", "caf-ber-meetup"},
		{"non\u00a0breaking\u00a0space", "non-breaking-space"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_ShapeAndIdempotence(t *testing.T) {
	titles := []string{
		"JavaScript World Conference 2024",
		" cloudinary-user-summit-2024",
		"Full-Stack Dev Meetup",
		"___under_scores___",
		"Mixed CASE and 123 numbers",
		"- - - spaced - - - hyphens - - -",
		"Tabs\t\tand\r\nnewlines",
		"Ünïcödé ☃ titles",
	}

	for _, title := range titles {
		slug := Slugify(title)
		if slug != "" {
			assert.Regexp(t, slugShape, slug, title)
		}
		assert.Equal(t, slug, Slugify(slug), title)
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "oss-na-2026", NormalizeKey("  OSS-NA-2026 "))
	assert.Equal(t, "does-not-exist", NormalizeKey("does-not-exist"))
	assert.Equal(t, "", NormalizeKey("   "))
}
