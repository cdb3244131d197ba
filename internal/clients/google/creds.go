package google

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
)

// ServiceCredential is the service-account identity used for the
// jwt-bearer token exchange. Loaded once at startup; never mutated.
type ServiceCredential struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceCredential reads the credential from GOOGLE_SERVICE_ACCOUNT_JSON
// (inline JSON) or GOOGLE_SERVICE_ACCOUNT_FILE (path to the key file).
func LoadServiceCredential() (ServiceCredential, error) {
	var cred ServiceCredential

	raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if raw == "" {
		path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
		if path == "" {
			return cred, apierr.Config(fmt.Errorf("missing GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE"))
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return cred, apierr.Config(fmt.Errorf("read service account file: %w", err))
		}
		raw = string(b)
	}

	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return cred, apierr.Config(fmt.Errorf("parse service account json: %w", err))
	}
	if strings.TrimSpace(cred.ClientEmail) == "" || strings.TrimSpace(cred.PrivateKey) == "" {
		return cred, apierr.Config(fmt.Errorf("service account json missing client_email or private_key"))
	}
	if strings.TrimSpace(cred.TokenURI) == "" {
		cred.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return cred, nil
}

// AssertionSigner builds the signed claim set exchanged for an access token.
type AssertionSigner struct {
	cred  ServiceCredential
	key   *rsa.PrivateKey
	scope string
}

// NewAssertionSigner parses the PEM key once. A malformed key is a
// configuration error, not a transient fault.
func NewAssertionSigner(cred ServiceCredential, scope string) (*AssertionSigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return nil, apierr.Config(fmt.Errorf("parse service account private key: %w", err))
	}
	if strings.TrimSpace(scope) == "" {
		scope = "https://www.googleapis.com/auth/generative-language"
	}
	return &AssertionSigner{cred: cred, key: key, scope: scope}, nil
}

// Sign produces the RS256 assertion for the credential-grant request.
// The claim set expires one hour after issuance.
func (s *AssertionSigner) Sign(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   s.cred.ClientEmail,
		"scope": s.scope,
		"aud":   s.cred.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", apierr.Config(fmt.Errorf("sign assertion: %w", err))
	}
	return signed, nil
}

func (s *AssertionSigner) TokenURI() string { return s.cred.TokenURI }
