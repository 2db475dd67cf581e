package pkg

import "golang.org/x/crypto/bcrypt"

const bcryptCost = 14

// HashPassword returns the salted bcrypt hash of the given plaintext password.
// The salt varies per call, so hashing the same password twice yields two
// different hash strings - both verifiable via CheckPasswordHash.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return BytesToString(bytes), err
}

// CheckPasswordHash reports whether the plaintext password is the one that
// produced the given bcrypt hash. The comparison is constant-time.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
