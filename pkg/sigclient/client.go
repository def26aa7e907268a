// Package sigclient is an HTTP client that signs each request with the
// wallet key, producing the headers internal/auth verifies.
package sigclient

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// Client sends authenticated requests on behalf of one wallet key.
type Client struct {
	privateKey *ecdsa.PrivateKey
	client     *http.Client
}

// New creates a client from a hex-encoded private key.
func New(privateKeyHex string, client *http.Client) (*Client, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("sigclient: invalid private key: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{privateKey: privateKey, client: client}, nil
}

// NewFromKey creates a client from an already loaded key.
func NewFromKey(privateKey *ecdsa.PrivateKey, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{privateKey: privateKey, client: client}
}

// Address returns the wallet address requests are signed as.
func (c *Client) Address() string {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey).Hex()
}

// SendRequest signs and sends one request. The signature covers the SHA-256
// hash of the body, the timestamp and a random single-use nonce, digested
// with the EIP-191 prefix.
func (c *Client) SendRequest(method, url string, body []byte) (*http.Response, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	bodyHash := sha256.Sum256(body)

	message := fmt.Sprintf("%x.%s.%s", bodyHash, timestamp, nonce)
	digest := crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))

	signature, err := crypto.Sign(digest, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sigclient: failed to sign message: %w", err)
	}
	signature[64] += 27 // wallet-style recovery id

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sigclient: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Address", c.Address())
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", hex.EncodeToString(signature))

	return c.client.Do(req)
}

func randomNonce() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("sigclient: failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
