package security

import (
	"errors"
	"testing"
)

func strictPolicy() PolicyConfig {
	return PolicyConfig{
		MinLength:                8,
		MaxLength:                128,
		RequireUppercase:         true,
		RequireLowercase:         true,
		RequireNumbers:           true,
		RequireSpecialCharacters: true,
	}
}

func TestPolicyValidatorAcceptsCompliantPassword(t *testing.T) {
	v := NewPolicyValidator(strictPolicy())

	if err := v.Validate("Abc12345!"); err != nil {
		t.Fatalf("expected compliant password to pass, got %v", err)
	}
}

func TestPolicyValidatorRejectsByRule(t *testing.T) {
	v := NewPolicyValidator(strictPolicy())

	cases := []struct {
		name     string
		password string
		code     string
	}{
		{"too short", "abc", "min_length"},
		{"no uppercase", "abc12345!", "uppercase"},
		{"no lowercase", "ABC12345!", "lowercase"},
		{"no digit", "Abcdefgh!", "digit"},
		{"no symbol", "Abc123456", "symbol"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.password)
			if err == nil {
				t.Fatalf("expected %q to be rejected", tc.password)
			}

			var policyErr *PasswordValidationError
			if !errors.As(err, &policyErr) {
				t.Fatalf("expected PasswordValidationError, got %T", err)
			}
			if policyErr.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, policyErr.Code)
			}
		})
	}
}

func TestPolicyValidatorShortCircuitsInOrder(t *testing.T) {
	v := NewPolicyValidator(strictPolicy())

	// "abc" violates several rules; the length rule runs first.
	err := v.Validate("abc")
	var policyErr *PasswordValidationError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordValidationError, got %v", err)
	}
	if policyErr.Code != "min_length" {
		t.Fatalf("expected first violation to win, got %s", policyErr.Code)
	}
}

func TestPolicyValidatorMaxLength(t *testing.T) {
	cfg := strictPolicy()
	cfg.MaxLength = 12
	v := NewPolicyValidator(cfg)

	if err := v.Validate("Abc12345!Abc12345!"); err == nil {
		t.Fatal("expected over-length password to be rejected")
	}
}

func TestPolicyValidatorTogglesAreIndependent(t *testing.T) {
	cfg := strictPolicy()
	cfg.RequireSpecialCharacters = false
	v := NewPolicyValidator(cfg)

	if err := v.Validate("Abc123456"); err != nil {
		t.Fatalf("expected password without symbol to pass when rule disabled, got %v", err)
	}
}

func TestPolicyValidatorStrengthRule(t *testing.T) {
	cfg := PolicyConfig{
		MinLength:        8,
		MaxLength:        128,
		MinStrengthScore: 3,
	}
	v := NewPolicyValidator(cfg)

	if err := v.Validate("password1234"); err == nil {
		t.Fatal("expected dictionary password to fail the strength rule")
	}
	if err := v.Validate("correct horse battery staple 91"); err != nil {
		t.Fatalf("expected high-entropy passphrase to pass, got %v", err)
	}
}
