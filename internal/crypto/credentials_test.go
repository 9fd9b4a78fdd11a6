package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := `{"apiKey":"k","secret":"s","passphrase":"p"}`
	passphrase := "correct horse battery staple"

	stored, err := EncryptCredential(plaintext, passphrase)
	if err != nil {
		t.Fatalf("EncryptCredential: %v", err)
	}

	got, err := DecryptCredential(stored, passphrase)
	if err != nil {
		t.Fatalf("DecryptCredential: %v", err)
	}
	if got != plaintext {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestEncryptProducesDistinctIVs(t *testing.T) {
	a, err := EncryptCredential("same plaintext", "pw")
	if err != nil {
		t.Fatalf("EncryptCredential: %v", err)
	}
	b, err := EncryptCredential("same plaintext", "pw")
	if err != nil {
		t.Fatalf("EncryptCredential: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct ciphertexts from random IVs, got identical output")
	}
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	stored, err := EncryptCredential("secret value", "right password")
	if err != nil {
		t.Fatalf("EncryptCredential: %v", err)
	}
	if _, err := DecryptCredential(stored, "wrong password"); err == nil {
		t.Fatal("expected decryption with wrong passphrase to fail")
	}
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	cases := []string{"", "no-colon-here", "zz:zz", "0011:zz"}
	for _, c := range cases {
		if _, err := DecryptCredential(c, "pw"); err == nil {
			t.Errorf("expected error decrypting %q, got nil", c)
		}
	}
}

func TestEncryptEmptyPassphraseFails(t *testing.T) {
	if _, err := EncryptCredential("x", ""); err == nil {
		t.Fatal("expected error with empty passphrase")
	}
}
