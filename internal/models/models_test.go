package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelSatisfies(t *testing.T) {
	tts := []struct {
		granted  Level
		required Level
		want     bool
	}{
		{LevelRead, LevelRead, true},
		{LevelRead, LevelWrite, false},
		{LevelRead, LevelAdmin, false},
		{LevelWrite, LevelRead, true},
		{LevelWrite, LevelWrite, true},
		{LevelWrite, LevelAdmin, false},
		{LevelAdmin, LevelRead, true},
		{LevelAdmin, LevelWrite, true},
		{LevelAdmin, LevelAdmin, true},
		{LevelDeny, LevelRead, false},
		{LevelAdmin, LevelDeny, false},
		{Level("owner"), LevelRead, false},
	}

	for _, tt := range tts {
		assert.Equal(t, tt.want, tt.granted.Satisfies(tt.required), "%s satisfies %s", tt.granted, tt.required)
	}
}

func TestParseEnums(t *testing.T) {
	_, err := ParseLevel("deny")
	assert.NoError(t, err)
	_, err = ParseLevel("owner")
	assert.Error(t, err)

	_, err = ParseResourceType("folder")
	assert.NoError(t, err)
	_, err = ParseResourceType("page")
	assert.Error(t, err)

	_, err = ParseSubjectType("group")
	assert.NoError(t, err)
	_, err = ParseSubjectType("team")
	assert.Error(t, err)
}

func TestTagsScan(t *testing.T) {
	var tags Tags
	require.NoError(t, tags.Scan(`["go","wiki"]`))
	assert.Equal(t, Tags{"go", "wiki"}, tags)

	require.NoError(t, tags.Scan([]byte(`[]`)))
	assert.Equal(t, Tags{}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Equal(t, Tags{}, tags)

	assert.Error(t, tags.Scan(42))
}

func TestTagsValue(t *testing.T) {
	v, err := Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = Tags{"b", "a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["b","a"]`, v)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, Tags{"ops", "go"}, NormalizeTags([]string{" ops", "", "go", "ops "}))
	assert.Equal(t, Tags{}, NormalizeTags(nil))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Admin User", User{FirstName: "Admin", LastName: "User"}.FullName())
	assert.Equal(t, "Alice", User{FirstName: "Alice"}.FullName())
}
