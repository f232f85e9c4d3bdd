package wallet

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "tokenforge-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return &Keystore{ring: ring}
}

func TestNormaliseHexKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0xabc123", "abc123"},
		{"0Xabc123", "abc123"},
		{"abc123", "abc123"},
		{"  0xabc  ", "abc"},
		{"0x", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normaliseHexKey(tt.in), tt.in)
	}
}

func TestKeystoreStoreRetrieve(t *testing.T) {
	ks := testKeystore(t)
	ref, err := ks.Store("main", "0x"+testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "tokenforge.main", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got)
}

func TestKeystoreRetrieveMissing(t *testing.T) {
	ks := testKeystore(t)
	_, err := ks.Retrieve("tokenforge.nope")
	assert.Error(t, err)
}

func TestKeystoreNilRing(t *testing.T) {
	ks := &Keystore{}
	_, err := ks.Retrieve("tokenforge.main")
	assert.ErrorIs(t, err, ErrKeystoreUnavailable)
	_, err = ks.Store("main", testPrivKeyHex)
	assert.ErrorIs(t, err, ErrKeystoreUnavailable)
}

func TestNewFileKeystore(t *testing.T) {
	ks, err := NewFileKeystore(t.TempDir(), func(string) (string, error) { return "pw", nil })
	require.NoError(t, err)
	ref, err := ks.Store("ops", testPrivKeyHex)
	require.NoError(t, err)
	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got)
}

func TestInMemoryKeystore(t *testing.T) {
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("main", "0x"+testPrivKeyHex)
	require.NoError(t, err)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, got)

	_, err = ks.Retrieve("tokenforge.other")
	assert.Error(t, err)
}

func TestResolveSecret(t *testing.T) {
	ks := NewInMemoryKeystore()
	ref, err := ks.Store("main", testPrivKeyHex)
	require.NoError(t, err)

	t.Run("plain hex", func(t *testing.T) {
		got, err := ResolveSecret(ks, "0x"+testPrivKeyHex)
		require.NoError(t, err)
		assert.Equal(t, testPrivKeyHex, got)
	})
	t.Run("keyring reference", func(t *testing.T) {
		got, err := ResolveSecret(ks, KeyringSecret(ref))
		require.NoError(t, err)
		assert.Equal(t, testPrivKeyHex, got)
	})
	t.Run("empty reference", func(t *testing.T) {
		_, err := ResolveSecret(ks, "keyring:")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
	t.Run("no backend", func(t *testing.T) {
		_, err := ResolveSecret(nil, KeyringSecret(ref))
		assert.ErrorIs(t, err, ErrKeystoreUnavailable)
	})
}
