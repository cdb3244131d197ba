package google

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testCredential(t *testing.T) (ServiceCredential, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	cred := ServiceCredential{
		ClientEmail: "svc@project.iam.gserviceaccount.com",
		PrivateKey:  string(pemBytes),
		TokenURI:    "https://oauth2.example.com/token",
	}
	return cred, key
}

func TestSignProducesThreeSegmentToken(t *testing.T) {
	cred, key := testCredential(t)
	signer, err := NewAssertionSigner(cred, "https://www.googleapis.com/auth/generative-language")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	assertion, err := signer.Sign(now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	segments := strings.Split(assertion, ".")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	headerRaw, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	var header map[string]string
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if header["alg"] != "RS256" {
		t.Fatalf("expected alg RS256, got %q", header["alg"])
	}

	claimsRaw, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(claimsRaw, &claims); err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims["iss"] != cred.ClientEmail {
		t.Fatalf("unexpected iss: %v", claims["iss"])
	}
	if claims["aud"] != cred.TokenURI {
		t.Fatalf("unexpected aud: %v", claims["aud"])
	}
	if claims["scope"] != "https://www.googleapis.com/auth/generative-language" {
		t.Fatalf("unexpected scope: %v", claims["scope"])
	}
	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	if iat != now.Unix() {
		t.Fatalf("expected iat %d, got %d", now.Unix(), iat)
	}
	if exp-iat != 3600 {
		t.Fatalf("expected 1h validity, got %ds", exp-iat)
	}

	// Signature verifies against the public key.
	parsed, err := jwt.Parse(assertion, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("verify assertion: %v", err)
	}
	if !parsed.Valid {
		t.Fatalf("expected valid assertion")
	}
}

func TestNewAssertionSignerRejectsMalformedPEM(t *testing.T) {
	cred := ServiceCredential{
		ClientEmail: "svc@project.iam.gserviceaccount.com",
		PrivateKey:  "not a pem key",
		TokenURI:    "https://oauth2.example.com/token",
	}
	if _, err := NewAssertionSigner(cred, ""); err == nil {
		t.Fatalf("expected error for malformed PEM")
	}
}

func TestSignerDefaultsScope(t *testing.T) {
	cred, _ := testCredential(t)
	signer, err := NewAssertionSigner(cred, "  ")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if signer.scope == "" {
		t.Fatalf("expected default scope")
	}
}
