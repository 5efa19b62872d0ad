package tokencache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "https://auth.test:abc", Key("https://auth.test", "abc"))
}

func TestNew(t *testing.T) {
	t.Run("none disables caching", func(t *testing.T) {
		cache, err := New(ModeNone)
		require.NoError(t, err)
		assert.Nil(t, cache)
	})

	t.Run("file", func(t *testing.T) {
		cache, err := New(ModeFile)
		require.NoError(t, err)
		assert.IsType(t, &FileCache{}, cache)
	})

	t.Run("keyring", func(t *testing.T) {
		keyring.MockInit()
		cache, err := New(ModeKeyring)
		require.NoError(t, err)
		assert.IsType(t, &KeyringCache{}, cache)
	})

	t.Run("auto prefers keyring when usable", func(t *testing.T) {
		keyring.MockInit()
		cache, err := New(ModeAuto)
		require.NoError(t, err)
		assert.IsType(t, &KeyringCache{}, cache)
	})

	t.Run("auto falls back to file without a keyring backend", func(t *testing.T) {
		keyring.MockInitWithError(errors.New("no secret service"))
		cache, err := New(ModeAuto)
		require.NoError(t, err)
		assert.IsType(t, &FileCache{}, cache)
	})

	t.Run("unknown mode errors", func(t *testing.T) {
		_, err := New(Mode("bogus"))
		assert.Error(t, err)
	})
}
