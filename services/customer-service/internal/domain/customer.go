// Package domain holds the customer aggregate. The portal credential is
// stored bcrypt-hashed; the raw password never leaves the registration
// handler.
package domain

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/covergrid/covergrid/libs/choreo"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type Customer struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Status       Status
	Version      int64
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func Register(id, email, name, password string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Customer{
		ID:           id,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Status:       StatusActive,
		Version:      1,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

func (c *Customer) VerifyPassword(raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(raw))
}

func (c *Customer) Archive() error {
	if c.Status != StatusActive {
		return &choreo.InvariantViolation{
			AggregateType: "customer",
			AggregateID:   c.ID,
			Command:       "Archive",
			State:         string(c.Status),
		}
	}
	c.Status = StatusArchived
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	return nil
}
