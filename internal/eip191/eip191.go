// Package eip191 implements personal-sign (EIP-191) message construction and
// signer recovery. Both the message digest and the address derivation use
// Keccak-256; an address computed with any other hash is silently wrong, so
// the choice is pinned by a regression test.
package eip191

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidSignatureLength is returned when a signature is not the
	// 65-byte r||s||v form.
	ErrInvalidSignatureLength = errors.New("eip191: signature must be 65 bytes (r||s||v)")
	// ErrInvalidRecoveryID is returned when v is outside {0, 1, 27, 28}.
	ErrInvalidRecoveryID = errors.New("eip191: recovery id must be 0, 1, 27 or 28")
	// ErrRecoveryFailed is returned when secp256k1 public key recovery
	// yields no valid point.
	ErrRecoveryFailed = errors.New("eip191: public key recovery failed")
)

// GenerateSignMessage builds the deterministic payload a wallet is asked to
// personal-sign to prove ownership. The same nonce always produces identical
// bytes.
func GenerateSignMessage(nonce string) string {
	return fmt.Sprintf(
		"Sign this message to prove you own this wallet.\n\nNonce: %s\n\nThis request will not trigger a blockchain transaction or cost any gas fees.",
		nonce,
	)
}

// HashMessage computes the EIP-191 digest of a message: Keccak-256 over the
// literal prefix, the decimal byte length and the payload. The construction
// is byte-exact so recovery matches standard wallet signing.
func HashMessage(message string) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// RecoverSigner recovers the address that personal-signed message. The
// signature is r||s||v with v as 0/1 or 27/28.
func RecoverSigner(message string, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignatureLength
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	switch sig[64] {
	case 0, 1:
	case 27, 28:
		sig[64] -= 27
	default:
		return common.Address{}, ErrInvalidRecoveryID
	}

	digest := HashMessage(message)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverSignerHex is RecoverSigner for a hex-encoded signature, with or
// without a leading 0x.
func RecoverSignerHex(message, signatureHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strip0x(signatureHex))
	if err != nil {
		return common.Address{}, fmt.Errorf("eip191: invalid signature hex: %w", err)
	}
	return RecoverSigner(message, sig)
}

// Verify reports whether signatureHex over message was produced by
// expectedAddress. The address comparison is case-insensitive. A legitimate
// mismatch returns (false, nil); only malformed input is an error.
func Verify(message, signatureHex, expectedAddress string) (bool, error) {
	recovered, err := RecoverSignerHex(message, signatureHex)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(recovered.Hex(), expectedAddress), nil
}

func strip0x(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}
