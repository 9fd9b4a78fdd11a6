// Package crypto encrypts and decrypts trading credentials at rest.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	aesKeyLen    = 32
	scryptSalt   = "salt"
)

var (
	// ErrEmptyPassphrase is returned when the credential key is unset.
	ErrEmptyPassphrase = errors.New("crypto: passphrase must not be empty")
	// ErrMalformedCiphertext is returned when a stored ciphertext does not
	// match the "iv:hex || ciphertext:hex" format.
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
)

// deriveKey derives a 32-byte AES key from passphrase via scrypt with the
// fixed salt mandated by the credential storage contract.
func deriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(scryptSalt), scryptN, scryptR, scryptP, aesKeyLen)
	if err != nil {
		return nil, fmt.Errorf("crypto: deriving key: %w", err)
	}
	return key, nil
}

// EncryptCredential encrypts plaintext with AES-256-CBC under a key derived
// from passphrase, and returns it as "hex(iv):hex(ciphertext)".
func EncryptCredential(plaintext, passphrase string) (string, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())

	iv := make([]byte, block.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: generating iv: %w", err)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptCredential reverses EncryptCredential.
func DecryptCredential(stored, passphrase string) (string, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return "", err
	}

	iv, ciphertext, err := splitStored(stored)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("%w: iv length %d != block size %d", ErrMalformedCiphertext, len(iv), block.BlockSize())
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d not a multiple of block size", ErrMalformedCiphertext, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, block.BlockSize())
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong key?): %w", err)
	}
	return string(unpadded), nil
}

func splitStored(stored string) (iv, ciphertext []byte, err error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return nil, nil, ErrMalformedCiphertext
	}
	iv, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv: %v", ErrMalformedCiphertext, err)
	}
	ciphertext, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedCiphertext, err)
	}
	return iv, ciphertext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errors.New("crypto: invalid padded data length")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, errors.New("crypto: invalid padding")
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("crypto: invalid padding")
		}
	}
	return data[:n-padLen], nil
}
