package keystore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.FromECDSA(priv)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	sealed, err := Encrypt(key, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, "pbkdf2-sha256", sealed.KDF)
	assert.Equal(t, KDFIterations, sealed.Iterations)

	plain, err := Decrypt(sealed, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, key, plain)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt(testKey(t), "right")
	require.NoError(t, err)

	plain, err := Decrypt(sealed, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
	assert.Nil(t, plain)
}

func TestDecryptMalformedFields(t *testing.T) {
	sealed, err := Encrypt(testKey(t), "pass")
	require.NoError(t, err)

	t.Run("bad ciphertext base64", func(t *testing.T) {
		corrupted := *sealed
		corrupted.Ciphertext = "not base64!!!"
		_, err := Decrypt(&corrupted, "pass")
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("bad nonce length", func(t *testing.T) {
		corrupted := *sealed
		corrupted.Nonce = "AAAA"
		_, err := Decrypt(&corrupted, "pass")
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		corrupted := *sealed
		corrupted.Ciphertext = corrupted.Ciphertext[:8]
		_, err := Decrypt(&corrupted, "pass")
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})
}

func TestEncryptFreshNonceAndSalt(t *testing.T) {
	key := testKey(t)

	first, err := Encrypt(key, "pass")
	require.NoError(t, err)
	second, err := Encrypt(key, "pass")
	require.NoError(t, err)

	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestValidatePrivateKey(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidatePrivateKey(testKey(t)))
	})

	t.Run("wrong length", func(t *testing.T) {
		assert.ErrorIs(t, ValidatePrivateKey(make([]byte, 31)), ErrInvalidPrivateKey)
	})

	t.Run("zero scalar", func(t *testing.T) {
		assert.ErrorIs(t, ValidatePrivateKey(make([]byte, 32)), ErrInvalidPrivateKey)
	})

	t.Run("scalar at group order", func(t *testing.T) {
		n := crypto.S256().Params().N.Bytes()
		key := make([]byte, 32)
		copy(key[32-len(n):], n)
		assert.ErrorIs(t, ValidatePrivateKey(key), ErrInvalidPrivateKey)
	})

	t.Run("all ones is above the order", func(t *testing.T) {
		key := bytes.Repeat([]byte{0xff}, 32)
		assert.ErrorIs(t, ValidatePrivateKey(key), ErrInvalidPrivateKey)
	})
}

func TestDeriveAddress(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	address, err := DeriveAddress(crypto.FromECDSA(priv))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), address)

	_, err = DeriveAddress(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestKeyFileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyfile.json")

	address, err := GenerateKeyFile(path, "passphrase")
	require.NoError(t, err)

	kf, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, address.Hex(), kf.Address)
	assert.Equal(t, "pbkdf2-sha256", kf.Crypto.KDF)

	priv, loaded, err := LoadPrivateKey(path, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, address, loaded)
	assert.Equal(t, address, crypto.PubkeyToAddress(priv.PublicKey))

	_, _, err = LoadPrivateKey(path, "nope")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
