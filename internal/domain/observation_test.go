package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	testCases := []struct {
		input       string
		expected    Kind
		expectError bool
	}{
		{input: "stars", expected: KindStar},
		{input: "Star", expected: KindStar},
		{input: "forks", expected: KindFork},
		{input: "watchers", expected: KindWatch},
		{input: " watch ", expected: KindWatch},
		{input: "issues", expectError: true},
		{input: "", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			kind, err := ParseKind(tc.input)
			if tc.expectError {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, kind)
		})
	}
}

func TestKind_Accessors(t *testing.T) {
	assert.Equal(t, "starred_time", KindStar.Field())
	assert.Equal(t, "forked_time", KindFork.Field())
	assert.Equal(t, "Watchers", KindWatch.Noun())
	assert.Equal(t, "stars", KindStar.Path())

	for _, k := range Kinds {
		parsed, err := ParseKind(k.Path())
		require.NoError(t, err)
		assert.Equal(t, k, parsed, "Path must round-trip through ParseKind")
	}
}

func TestKind_JSONMapKeys(t *testing.T) {
	data, err := json.Marshal(map[Kind]int{KindStar: 2, KindFork: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"star":2,"fork":1}`, string(data))

	var decoded map[Kind]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded[KindStar])
}

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	in := time.Date(2024, 3, 1, 9, 30, 15, 999, loc)
	got := NormalizeTime(in)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 30, 15, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}
