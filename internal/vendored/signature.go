package vendored

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ProtonMail/gopenpgp/v2/crypto"
	"github.com/spf13/afero"
)

// MaxKeySize is the largest public key file accepted (100KB).
const MaxKeySize = 100 * 1024

// MaxSignatureSize is the largest detached signature accepted (10KB).
const MaxSignatureSize = 10 * 1024

// LoadPublicKey reads an armored public key. When fingerprint is
// non-empty the key must match it.
func LoadPublicKey(fs afero.Fs, path, fingerprint string) (*crypto.Key, error) {
	data, err := readLimited(fs, path, MaxKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	key, err := crypto.NewKeyFromArmored(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PGP key: %w", err)
	}
	if fingerprint != "" {
		want, err := ParseFingerprint(fingerprint)
		if err != nil {
			return nil, err
		}
		if got := strings.ToUpper(key.GetFingerprint()); got != want {
			return nil, fmt.Errorf("key fingerprint mismatch: expected %s, got %s", want, got)
		}
	}
	return key, nil
}

// VerifySignature checks a detached signature (armored or binary) over
// the file at archivePath.
func VerifySignature(fs afero.Fs, archivePath string, signature []byte, key *crypto.Key) error {
	data, err := afero.ReadFile(fs, archivePath)
	if err != nil {
		return fmt.Errorf("failed to read file for signature verification: %w", err)
	}

	sig, err := crypto.NewPGPSignatureFromArmored(string(signature))
	if err != nil {
		sig = crypto.NewPGPSignature(signature)
	}

	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		return fmt.Errorf("failed to create keyring: %w", err)
	}

	// A zero verify time accepts signatures made at any time.
	if err := keyRing.VerifyDetached(crypto.NewPlainMessage(data), sig, 0); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// VerifyFiles loads the key and signature from disk and verifies archivePath.
func VerifyFiles(fs afero.Fs, archivePath, signaturePath, keyPath string) error {
	key, err := LoadPublicKey(fs, keyPath, "")
	if err != nil {
		return err
	}
	sig, err := readLimited(fs, signaturePath, MaxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	return VerifySignature(fs, archivePath, sig, key)
}

// ParseFingerprint normalizes a fingerprint by removing spaces and
// converting to uppercase. The result must be 40 hex characters.
func ParseFingerprint(fp string) (string, error) {
	fp = strings.ToUpper(strings.ReplaceAll(fp, " ", ""))
	if len(fp) != 40 {
		return "", fmt.Errorf("fingerprint must be 40 hex characters, got %d", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		return "", fmt.Errorf("fingerprint contains invalid hex characters: %w", err)
	}
	return fp, nil
}

func readLimited(fs afero.Fs, path string, limit int64) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s exceeds maximum size of %d bytes", path, limit)
	}
	return afero.ReadFile(fs, path)
}
