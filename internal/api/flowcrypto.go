package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// gcmTagSize is the length of the authentication tag appended to the
// encrypted flow payload by the WhatsApp client.
const gcmTagSize = 16

// flowDataRequest is the encrypted envelope WhatsApp posts to the Flow
// data-exchange endpoint. All three fields are base64 encoded.
type flowDataRequest struct {
	EncryptedFlowData string `json:"encrypted_flow_data"`
	EncryptedAESKey   string `json:"encrypted_aes_key"`
	InitialVector     string `json:"initial_vector"`
}

// flowSession carries the AES session key and IV recovered from a request so
// the response can be encrypted for the same exchange.
type flowSession struct {
	aesKey []byte
	iv     []byte
}

// ParseFlowPrivateKey decodes a PEM-encoded RSA private key in PKCS#8 or
// PKCS#1 form.
func ParseFlowPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in flow private key")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("flow private key is not an RSA key")
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flow private key: %w", err)
	}
	return key, nil
}

// decryptFlowRequest unwraps the AES session key with RSA-OAEP (SHA-256) and
// opens the AES-GCM payload. The tag travels as the last 16 bytes of the
// flow data, which matches Go's appended-tag convention.
func decryptFlowRequest(priv *rsa.PrivateKey, req flowDataRequest) ([]byte, *flowSession, error) {
	flowData, err := base64.StdEncoding.DecodeString(req.EncryptedFlowData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted flow data: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(req.InitialVector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode initial vector: %w", err)
	}
	encryptedKey, err := base64.StdEncoding.DecodeString(req.EncryptedAESKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted AES key: %w", err)
	}
	if len(flowData) < gcmTagSize {
		return nil, nil, fmt.Errorf("encrypted flow data shorter than GCM tag")
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), nil, priv, encryptedKey, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unwrap AES key: %w", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, iv, flowData, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt flow data: %w", err)
	}
	return plaintext, &flowSession{aesKey: aesKey, iv: iv}, nil
}

// encryptFlowResponse seals the plaintext with AES-GCM under the session key
// and the bitwise-inverted request IV, returning base64(ciphertext||tag).
func encryptFlowResponse(sess *flowSession, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(sess.aesKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialize AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(sess.iv))
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %w", err)
	}
	flipped := make([]byte, len(sess.iv))
	for i, b := range sess.iv {
		flipped[i] = b ^ 0xFF
	}
	sealed := gcm.Seal(nil, flipped, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
