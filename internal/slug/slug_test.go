package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tts := []struct {
		in   string
		want string
	}{
		{"Intro", "intro"},
		{"Getting Started", "getting-started"},
		{"  Release notes: v2.1!  ", "release-notes-v2-1"},
		{"---a---b---", "a-b"},
		{"Déjà vu", "d-j-vu"},
		{"!!!", ""},
		{"", ""},
		{"already-a-slug", "already-a-slug"},
		{"CamelCase123", "camelcase123"},
	}

	for _, tt := range tts {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{"Intro", "A  B  C", "__x__", "Déjà vu", "2024 Q3 / Planning", ""}
	for _, in := range inputs {
		once := Make(in)
		assert.Equal(t, once, Make(once), "input %q", in)
		assert.Equal(t, once, Make(in), "input %q", in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a", Join("", "a"))
	assert.Equal(t, "a/b", Join("a", "b"))
	assert.Equal(t, "a/b/c", Join("a/b", "c"))
}
