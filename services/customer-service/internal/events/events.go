// Package events declares the customer context's emitted event types and the
// foreign schemas it consumes.
package events

import (
	"encoding/json"
	"errors"

	"github.com/covergrid/covergrid/libs/event"
)

const (
	AggregateCustomer = "customer"

	CustomerRegistered = "customer.registered.v1"
	CustomerArchived   = "customer.archived.v1"

	// Consumed from the policy context.
	AggregatePolicy = "policy"
	PolicyIssued    = "policy.issued.v1"
)

type CustomerPayload struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type PolicyIssuedPayload struct {
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Product    string `json:"product"`
	Premium    string `json:"premium"`
}

func Registry() *event.Registry {
	r := event.NewRegistry()
	r.Register(event.Schema{EventType: PolicyIssued, Decode: func(raw []byte) error {
		var p PolicyIssuedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.PolicyID == "" || p.CustomerID == "" {
			return errors.New("policy_id and customer_id are required")
		}
		return nil
	}})
	return r
}
