package login

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes the plain-text password using bcrypt.
func HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return hashedPassword, nil
}

// CheckPasswordHash compares the plain-text password with the stored hash.
func CheckPasswordHash(password string, hashedPassword []byte) (bool, error) {
	if password == "" || len(hashedPassword) == 0 {
		return false, fmt.Errorf("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword(hashedPassword, []byte(password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
