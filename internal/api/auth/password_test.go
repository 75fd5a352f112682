package auth

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"valid complex", "MyP@ssw0rd123!", true},
		{"valid minimal", "Abcdefgh123!", true},
		{"valid special chars", "Test123!@#$%^", true},
		{"too short", "Ab1!", false},
		{"exactly 11", "Abcdefgh12!", false},
		{"no uppercase", "abcdefgh123!", false},
		{"no lowercase", "ABCDEFGH123!", false},
		{"no digit", "Abcdefghijk!", false},
		{"no special", "Abcdefgh1234", false},
		{"empty", "", false},
		{"spaces only", "            ", false},
		{"unicode lowercase", "ABCDEFGH123!é", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if got := err == nil; got != tc.wantOK {
				t.Errorf("ValidatePassword(%q) error=%v, want valid=%v", tc.password, err, tc.wantOK)
			}
		})
	}
}

func TestValidatePassword_ReportsEveryRule(t *testing.T) {
	err := ValidatePassword("")
	pve, ok := err.(*PasswordValidationError)
	if !ok {
		t.Fatalf("err = %T, want *PasswordValidationError", err)
	}
	if len(pve.Messages) != 5 {
		t.Errorf("messages = %d, want 5: %v", len(pve.Messages), pve.Messages)
	}
}

func TestValidatePasswordOrError_Messages(t *testing.T) {
	tests := []struct {
		password    string
		wantContain string
	}{
		{"short", "at least 12"},
		{"abcdefgh123!", "uppercase"},
		{"ABCDEFGH123!", "lowercase"},
		{"Abcdefghijk!", "digit"},
		{"Abcdefgh1234", "special"},
	}

	for _, tc := range tests {
		t.Run(tc.wantContain, func(t *testing.T) {
			err := ValidatePasswordOrError(tc.password)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantContain) {
				t.Errorf("error %q should contain %q", err.Error(), tc.wantContain)
			}
		})
	}

	if err := ValidatePasswordOrError("MyP@ssw0rd123!"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("MyP@ssw0rd123!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "MyP@ssw0rd123!" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !VerifyPassword(hash, "MyP@ssw0rd123!") {
		t.Error("correct password should verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Error("wrong password should not verify")
	}
	if VerifyPassword("", "MyP@ssw0rd123!") {
		t.Error("empty hash should never verify")
	}
}
