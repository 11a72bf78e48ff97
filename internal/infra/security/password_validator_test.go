package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidator(t *testing.T) {
	validator := DefaultPasswordValidator()

	rejected := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1!"},
		{"single class", "alllowercase"},
		{"dictionary word", "password1"},
	}
	for _, tc := range rejected {
		if err := validator.Validate(tc.password); err == nil {
			t.Errorf("%s: %q must be rejected", tc.name, tc.password)
		}
	}

	accepted := []string{
		"Tr1cky-Horse-42",
		"quartz Lantern 97",
		"N0t-in-any-d1ctionary!",
	}
	for _, password := range accepted {
		if err := validator.Validate(password); err != nil {
			t.Errorf("%q must be accepted, got %v", password, err)
		}
	}
}

func TestPasswordValidationErrorCodes(t *testing.T) {
	validator := DefaultPasswordValidator()

	var violation *PasswordValidationError
	if err := validator.Validate("ab"); !errors.As(err, &violation) {
		t.Fatalf("expected a PasswordValidationError, got %v", err)
	}
	if violation.Code != "min_length" {
		t.Errorf("code = %q, want min_length", violation.Code)
	}
}

func TestMinLengthRuleCountsRunes(t *testing.T) {
	rule := MinLengthRule(8)
	if err := rule.Validate("pässwörd"); err != nil {
		t.Errorf("8 runes must satisfy the rule, got %v", err)
	}
	if err := rule.Validate("seven77"); err == nil {
		t.Error("7 characters must violate the rule")
	}
}

func TestRequireCharacterClassesRule(t *testing.T) {
	rule := RequireCharacterClassesRule(3)
	if err := rule.Validate("abcABC123"); err != nil {
		t.Errorf("three classes must satisfy the rule, got %v", err)
	}
	if err := rule.Validate("abcABC"); err == nil {
		t.Error("two classes must violate the rule")
	}
	if err := RequireCharacterClassesRule(0).Validate("anything"); err != nil {
		t.Errorf("a zero minimum must accept everything, got %v", err)
	}
}

func TestRequirePasswordStrengthRuleUserInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(3, "user@example.com")
	if err := rule.Validate("user@example.com1"); err == nil {
		t.Error("a password built from user inputs must be rejected")
	}
}

func TestValidatorRunsRulesInOrder(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(8),
		RequireCharacterClassesRule(2),
	)

	var violation *PasswordValidationError
	if err := validator.Validate("ab"); !errors.As(err, &violation) || violation.Code != "min_length" {
		t.Errorf("first violated rule must win, got %v", err)
	}
	if err := validator.Validate("longenoughpassword"); !errors.As(err, &violation) || violation.Code != "character_classes" {
		t.Errorf("later rules must run once earlier ones pass, got %v", err)
	}
}
