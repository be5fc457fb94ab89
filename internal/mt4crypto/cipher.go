// Package mt4crypto implements the AES-256-CBC framing cipher used by the
// Web Terminal duplex protocol.
//
// There is no ecosystem AEAD or stream-cipher wrapper in the retrieved
// corpus that fits this scheme (fixed zero IV, PKCS7 padding, key
// substitution mid-session), so this package is built directly on
// crypto/aes and crypto/cipher. See DESIGN.md for why no third-party
// crypto library was adopted here.
package mt4crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"sync"
)

// authKeyHex is the fixed key every client uses before a session key is
// negotiated, and the fallback once negotiated for any payload the server
// expects encrypted under the original key.
const authKeyHex = "02de02a1a65cc794684fcbea1ecb0fd74ae657e43662c11eee885d2fd64f4964"

const blockSize = aes.BlockSize

// zeroIV is used for every block cipher operation. The protocol has no
// per-message IV field; both sides rely on CBC chaining alone.
var zeroIV = make([]byte, blockSize)

// Cipher holds the auth key and, once negotiated, the session key. Safe
// for concurrent use; callers share one Cipher per session.
type Cipher struct {
	mu         sync.RWMutex
	authKey    []byte
	sessionKey []byte
}

// New decodes the fixed auth key and returns a Cipher with no session key
// installed yet.
func New() (*Cipher, error) {
	key, err := hex.DecodeString(authKeyHex)
	if err != nil {
		return nil, fmt.Errorf("mt4crypto: decode auth key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("mt4crypto: auth key must be 32 bytes, got %d", len(key))
	}
	return &Cipher{authKey: key}, nil
}

// SetSessionKey installs the per-session key the Token Service returns in
// its HTTP response, ahead of the WebSocket handshake. keyHex must decode
// to 32 bytes.
func (c *Cipher) SetSessionKey(keyHex string) error {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("mt4crypto: decode session key: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("mt4crypto: session key must be 32 bytes, got %d", len(key))
	}
	c.mu.Lock()
	c.sessionKey = key
	c.mu.Unlock()
	return nil
}

// HasSessionKey reports whether a session key has been installed.
func (c *Cipher) HasSessionKey() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionKey != nil
}

// key returns the session key if set, else the auth key. Decryption always
// uses this; encryption uses it unless useAuthKey forces the original key
// (the password packet that must still reach the server using the key it
// already holds).
func (c *Cipher) key(useAuthKey bool) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if useAuthKey || c.sessionKey == nil {
		return c.authKey
	}
	return c.sessionKey
}

// Encrypt pads plaintext with PKCS7 and encrypts it under CBC with the
// zero IV, using the auth key when useAuthKey is true and the session key
// otherwise (falling back to the auth key if none is installed).
func (c *Cipher) Encrypt(plaintext []byte, useAuthKey bool) ([]byte, error) {
	block, err := aes.NewCipher(c.key(useAuthKey))
	if err != nil {
		return nil, fmt.Errorf("mt4crypto: new cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, blockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt. It always uses the session key once installed,
// falling back to the auth key otherwise — callers never choose.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("mt4crypto: ciphertext length %d is not a multiple of %d", len(ciphertext), blockSize)
	}
	block, err := aes.NewCipher(c.key(false))
	if err != nil {
		return nil, fmt.Errorf("mt4crypto: new cipher: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, size int) []byte {
	padLen := size - len(data)%size
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("mt4crypto: cannot unpad empty data")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, fmt.Errorf("mt4crypto: invalid padding length %d", padLen)
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("mt4crypto: malformed padding bytes")
		}
	}
	return data[:n-padLen], nil
}
