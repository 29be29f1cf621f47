package httpx

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// AuthResult classifies the outcome of Basic-auth validation.
type AuthResult int

const (
	// AuthSuccess means auth is disabled, or credentials matched.
	AuthSuccess AuthResult = iota
	// AuthErrNoHeader means the Authorization header is missing.
	AuthErrNoHeader
	// AuthErrInvalidScheme means the header's scheme is not "Basic".
	AuthErrInvalidScheme
	// AuthErrParseFailed means the base64/credential payload is malformed.
	AuthErrParseFailed
	// AuthUnauthenticated means the decoded user/pass did not match.
	AuthUnauthenticated
)

// CredentialLookup resolves a username to its stored "salt$hash" record.
type CredentialLookup interface {
	Lookup(username string) (record string, ok bool)
}

// AuthConfig configures Basic-auth enforcement.
type AuthConfig struct {
	Enabled     bool
	Realm       string
	Credentials CredentialLookup
}

// CheckBasicAuth validates req's Authorization header against cfg.
func CheckBasicAuth(req *Request, cfg AuthConfig) AuthResult {
	if !cfg.Enabled {
		return AuthSuccess
	}

	header, ok := req.Header("Authorization")
	if !ok || header == "" {
		return AuthErrNoHeader
	}

	scheme, payload, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return AuthErrInvalidScheme
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return AuthErrParseFailed
	}

	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return AuthErrParseFailed
	}

	record, ok := cfg.Credentials.Lookup(user)
	if !ok {
		return AuthUnauthenticated
	}

	if !VerifyPassword(pass, record) {
		return AuthUnauthenticated
	}

	return AuthSuccess
}

// VerifyPassword checks password against a "saltHex$hashHex" record
// using SHA-256(password‖salt), compared in constant time.
func VerifyPassword(password, record string) bool {
	saltHex, hashHex, found := strings.Cut(record, "$")
	if !found {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	wantHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	sum := sha256.Sum256(append([]byte(password), salt...))
	return subtle.ConstantTimeCompare(sum[:], wantHash) == 1
}
