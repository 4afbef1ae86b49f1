package config

// PasswordConfig contains password policy settings applied at registration
// and password reset.
type PasswordConfig struct {
	// MinLength is the minimum accepted password length
	MinLength int
}

// DefaultPasswordConfig returns the stock password policy.
func DefaultPasswordConfig() PasswordConfig {
	return PasswordConfig{
		MinLength: 8,
	}
}
