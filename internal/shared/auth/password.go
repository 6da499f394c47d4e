package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password checks admin login attempts against a bcrypt hash or a plain value.
type Password struct {
	plain string
	hash  []byte
}

// NewPassword prefers hash when both are configured.
func NewPassword(plain, hash string) Password {
	p := Password{plain: plain}
	if h := strings.TrimSpace(hash); h != "" {
		p.hash = []byte(h)
		p.plain = ""
	}
	return p
}

// Configured reports whether any password is set.
func (p Password) Configured() bool {
	return p.plain != "" || len(p.hash) > 0
}

// Check reports whether candidate matches. An unconfigured password matches nothing.
func (p Password) Check(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(p.hash) > 0 {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	if p.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.plain), []byte(candidate)) == 1
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
