package domain

import (
	"errors"
	"testing"

	"github.com/covergrid/covergrid/libs/choreo"
)

func TestRegisterHashesPassword(t *testing.T) {
	c, err := Register("cus-1", "Ada@Example.com", " Ada Lovelace ", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if c.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", c.Email)
	}
	if c.Name != "Ada Lovelace" {
		t.Fatalf("name not trimmed: %q", c.Name)
	}
	if c.PasswordHash == "correct-horse" || c.PasswordHash == "" {
		t.Fatal("password stored in the clear")
	}
	if err := c.VerifyPassword("correct-horse"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := c.VerifyPassword("wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestRegisterValidation(t *testing.T) {
	if _, err := Register("cus-1", "not-an-email", "Ada", "correct-horse"); err == nil {
		t.Fatal("invalid email accepted")
	}
	if _, err := Register("cus-1", "ada@example.com", "Ada", "short"); err == nil {
		t.Fatal("short password accepted")
	}
}

func TestArchiveIsTerminal(t *testing.T) {
	c, err := Register("cus-1", "ada@example.com", "Ada", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := c.Archive(); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if c.Status != StatusArchived || c.Version != 2 {
		t.Fatalf("after archive: status=%s version=%d", c.Status, c.Version)
	}
	var iv *choreo.InvariantViolation
	if err := c.Archive(); !errors.As(err, &iv) {
		t.Fatalf("second archive: got %v, want InvariantViolation", err)
	}
}
