package types_test

import (
	"testing"

	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultType_String(t *testing.T) {
	assert.Equal(t, "media", types.Media.String())
	assert.Equal(t, "image", types.Image.String())
	assert.Equal(t, "unknown", types.VaultType(42).String())
}

func TestParseVaultType(t *testing.T) {
	vt, err := types.ParseVaultType("Image")
	require.NoError(t, err)
	assert.Equal(t, types.Image, vt)

	vt, err = types.ParseVaultType(" media ")
	require.NoError(t, err)
	assert.Equal(t, types.Media, vt)

	vt, err = types.ParseVaultType("img")
	require.NoError(t, err)
	assert.Equal(t, types.Image, vt)

	_, err = types.ParseVaultType("audio")
	assert.ErrorIs(t, err, types.ErrUnknownVaultType)
	_, err = types.ParseVaultType("unknown")
	assert.ErrorIs(t, err, types.ErrUnknownVaultType)
}

func TestEntryKey_Equality(t *testing.T) {
	a := types.NewEntryKey("test", types.Image)
	b := types.EntryKey{Key: string([]byte("test")), VaultType: types.Image}
	assert.Equal(t, a, b)
	assert.True(t, a == b)

	m := map[types.EntryKey]int{a: 1}
	assert.Equal(t, 1, m[b])

	assert.NotEqual(t, a, types.NewEntryKey("test", types.Media))
}

func TestEntryKey_Less(t *testing.T) {
	a := types.NewEntryKey("a", types.Image)
	b := types.NewEntryKey("b", types.Media)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, types.NewEntryKey("a", types.Media).Less(a))
	assert.False(t, a.Less(a))
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"test":       "test",
		"te/st":      "te-st",
		"../../etc":  "------etc",
		"a b.c":      "a-b-c",
		"ÄÖÜ":        "---",
		"MiXeD123":   "MiXeD123",
		"":           "",
		"with\\back": "with-back",
	}
	for in, want := range tests {
		assert.Equal(t, want, types.Sanitize(in), "input %q", in)
	}
}

func TestMediaKey(t *testing.T) {
	key := types.NewEntryKey("te/st", types.Image)
	assert.Equal(t, "te-st.png", types.MediaKey(key, ".png"))
	assert.Equal(t, "te-st.png", types.MediaKey(key, "png"))
	assert.Equal(t, "te-st.-p-g", types.MediaKey(key, "./p/g"))
	assert.Equal(t, "te-st", types.MediaKey(key, ""))
}
