package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestPasswordLengthBounds(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordLength)

	_, err = HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordLength)

	assert.NoError(t, ValidatePassword(strings.Repeat("a", 72)))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<b>bold</b>", Sanitize(`<b>bold</b><script>alert(1)</script>`))
	assert.Equal(t, "Title", SanitizePlain(` <em>Title</em> `))
}

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 0, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}
