package security

import (
	"errors"
	"testing"
)

func TestVerifySignature_Valid(t *testing.T) {
	secret := []byte("channel-secret")
	body := []byte(`{"events":[]}`)

	sig := Sign(secret, body)
	if err := VerifySignature(secret, body, sig); err != nil {
		t.Errorf("VerifySignature with matching signature: %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign([]byte("other-secret"), body)

	err := VerifySignature([]byte("channel-secret"), body, sig)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	secret := []byte("channel-secret")
	sig := Sign(secret, []byte(`{"events":[]}`))

	err := VerifySignature(secret, []byte(`{"events":[{}]}`), sig)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignature_EmptySignature(t *testing.T) {
	err := VerifySignature([]byte("channel-secret"), []byte("body"), "")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignature_NotBase64(t *testing.T) {
	err := VerifySignature([]byte("channel-secret"), []byte("body"), "not base64 !!!")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignature_EmptySecret(t *testing.T) {
	body := []byte("body")
	sig := Sign([]byte("x"), body)
	err := VerifySignature(nil, body, sig)
	if err == nil {
		t.Fatal("VerifySignature with empty secret should return error")
	}
	if errors.Is(err, ErrSignatureInvalid) {
		t.Error("empty secret is a config error, not a signature mismatch")
	}
}

func TestVerifySignature_EmptyBody(t *testing.T) {
	// The platform signs whatever body it sends; an empty body with a valid
	// signature over it must verify.
	secret := []byte("channel-secret")
	sig := Sign(secret, nil)
	if err := VerifySignature(secret, nil, sig); err != nil {
		t.Errorf("VerifySignature over empty body: %v", err)
	}
}
