package users

import (
	"crypto/sha256"
	"encoding/hex"
)

// User is a registration request. Password holds the plaintext on the way in;
// only its hash is ever persisted.
type User struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// HashPassword returns the hex SHA-256 of password, the same transform the
// database applies with encode(sha256(...), 'hex').
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
