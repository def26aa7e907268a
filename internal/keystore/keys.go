package keystore

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ValidatePrivateKey checks that the bytes are a usable secp256k1 private
// key: exactly 32 bytes and a scalar strictly between 0 and the group order.
func ValidatePrivateKey(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("%w: must be 32 bytes, got %d", ErrInvalidPrivateKey, len(key))
	}
	k := new(big.Int).SetBytes(key)
	if k.Sign() == 0 || k.Cmp(crypto.S256().Params().N) >= 0 {
		return fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return nil
}

// DeriveAddress computes the Ethereum address of a raw private key: the last
// 20 bytes of the Keccak-256 hash of the uncompressed public key.
func DeriveAddress(privateKey []byte) (common.Address, error) {
	if err := ValidatePrivateKey(privateKey); err != nil {
		return common.Address{}, err
	}
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// KeyFile is the on-disk format. Only the address and the sealed key are
// stored; the plaintext key exists in memory for the duration of a call.
type KeyFile struct {
	Address string       `json:"address"`
	Crypto  EncryptedKey `json:"crypto"`
}

// GenerateKeyFile creates a fresh key, writes it encrypted under the
// passphrase, and returns the derived address.
func GenerateKeyFile(path, passphrase string) (common.Address, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("keystore: failed to generate key: %w", err)
	}
	address := crypto.PubkeyToAddress(priv.PublicKey)

	sealed, err := Encrypt(crypto.FromECDSA(priv), passphrase)
	if err != nil {
		return common.Address{}, err
	}

	data, err := json.MarshalIndent(KeyFile{Address: address.Hex(), Crypto: *sealed}, "", "  ")
	if err != nil {
		return common.Address{}, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return common.Address{}, err
	}
	return address, nil
}

// LoadKeyFile reads the keyfile without decrypting it.
func LoadKeyFile(path string) (*KeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("keystore: malformed keyfile: %w", err)
	}
	return &kf, nil
}

// LoadPrivateKey decrypts the keyfile and returns the key with its address.
func LoadPrivateKey(path, passphrase string) (*ecdsa.PrivateKey, common.Address, error) {
	kf, err := LoadKeyFile(path)
	if err != nil {
		return nil, common.Address{}, err
	}

	raw, err := Decrypt(&kf.Crypto, passphrase)
	if err != nil {
		return nil, common.Address{}, err
	}

	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return priv, crypto.PubkeyToAddress(priv.PublicKey), nil
}
