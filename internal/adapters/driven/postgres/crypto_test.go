package postgres

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"
)

func testBox(t *testing.T, seed string) *SecretBox {
	t.Helper()
	digest := sha256.Sum256([]byte(seed))
	box, err := NewSecretBox(digest[:])
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	return box
}

func TestSecretBoxRoundTrip(t *testing.T) {
	box := testBox(t, "finsight-master-key")

	type providerCreds struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
		Endpoint string `json:"endpoint"`
	}
	original := providerCreds{
		Provider: "openai",
		APIKey:   "sk-proj-filing-research",
		Endpoint: "https://api.openai.com/v1",
	}

	blob, err := box.Seal(original)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if blob[0] != secretBlobVersion {
		t.Errorf("version byte = %d, want %d", blob[0], secretBlobVersion)
	}
	if bytes.Contains(blob, []byte(original.APIKey)) {
		t.Error("sealed blob leaks the API key in plaintext")
	}

	var opened providerCreds
	if err := box.Open(blob, &opened); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != original {
		t.Errorf("round trip = %+v, want %+v", opened, original)
	}
}

func TestSecretBoxKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		if _, err := NewSecretBox(make([]byte, size)); !errors.Is(err, ErrInvalidKeySize) {
			t.Errorf("key size %d: err = %v, want ErrInvalidKeySize", size, err)
		}
	}
}

func TestSecretBoxRejectsBadBlobs(t *testing.T) {
	box := testBox(t, "finsight-master-key")

	var s string
	if err := box.Open(nil, &s); !errors.Is(err, ErrInvalidBlobSize) {
		t.Errorf("nil blob: err = %v, want ErrInvalidBlobSize", err)
	}
	if err := box.Open([]byte{secretBlobVersion, 0x02}, &s); !errors.Is(err, ErrInvalidBlobSize) {
		t.Errorf("short blob: err = %v, want ErrInvalidBlobSize", err)
	}

	future := append([]byte{0x02}, make([]byte, 64)...)
	if err := box.Open(future, &s); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("future version: err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestSecretBoxWrongKey(t *testing.T) {
	sealed, err := testBox(t, "key-one").SealString("sk-proj-rotated-away")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}

	_, err = testBox(t, "key-two").OpenString(sealed)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("wrong key: err = %v, want ErrDecryptionFailed", err)
	}
}

func TestSecretBoxTamperDetection(t *testing.T) {
	box := testBox(t, "finsight-master-key")
	sealed, err := box.SealString("sk-proj-filing-research")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}

	// Flip one ciphertext bit
	sealed[len(sealed)-1] ^= 0x01
	if _, err := box.OpenString(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("tampered blob: err = %v, want ErrDecryptionFailed", err)
	}
}

func TestSecretBoxFreshNonces(t *testing.T) {
	box := testBox(t, "finsight-master-key")

	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		blob, err := box.SealString("identical plaintext")
		if err != nil {
			t.Fatalf("SealString: %v", err)
		}
		nonce := string(blob[1 : 1+secretNonceSize])
		if seen[nonce] {
			t.Fatalf("nonce reused on seal %d", i)
		}
		seen[nonce] = true
	}
}

func TestSecretBoxStringHelpers(t *testing.T) {
	box := testBox(t, "finsight-master-key")

	sealed, err := box.SealString("AKIA-bedrock-access")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}
	opened, err := box.OpenString(sealed)
	if err != nil {
		t.Fatalf("OpenString: %v", err)
	}
	if opened != "AKIA-bedrock-access" {
		t.Errorf("OpenString = %q", opened)
	}
}
