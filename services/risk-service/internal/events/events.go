// Package events declares the risk context's emitted event types and the
// foreign schemas it consumes. Risk subscribes to more topics than any other
// context; it is the read side of everyone else's history.
package events

import (
	"encoding/json"
	"errors"

	"github.com/covergrid/covergrid/libs/event"
)

const (
	AggregateRiskProfile = "risk_profile"

	RiskAssessed = "risk.assessed.v1"

	// Consumed from the customer context.
	AggregateCustomer  = "customer"
	CustomerRegistered = "customer.registered.v1"

	// Consumed from the policy context.
	AggregatePolicy = "policy"
	PolicyDrafted   = "policy.drafted.v1"
	PolicyLapsed    = "policy.lapsed.v1"

	// Consumed from the claims context.
	AggregateClaim = "claim"
	ClaimFiled     = "claim.filed.v1"
	ClaimApproved  = "claim.approved.v1"
)

type RiskAssessedPayload struct {
	ProfileID  string `json:"profile_id"`
	CustomerID string `json:"customer_id"`
	PolicyID   string `json:"policy_id"`
	Score      int    `json:"score"`
	Approved   bool   `json:"approved"`
}

type CustomerRegisteredPayload struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type PolicyPayload struct {
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Product    string `json:"product"`
	Coverage   string `json:"coverage"`
}

type ClaimPayload struct {
	ClaimID    string `json:"claim_id"`
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
}

func Registry() *event.Registry {
	r := event.NewRegistry()
	r.Register(event.Schema{EventType: CustomerRegistered, Decode: func(raw []byte) error {
		var p CustomerRegisteredPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.CustomerID == "" {
			return errors.New("customer_id is required")
		}
		return nil
	}})
	requireCustomer := func(raw []byte) error {
		var p PolicyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.CustomerID == "" {
			return errors.New("customer_id is required")
		}
		return nil
	}
	r.Register(event.Schema{EventType: PolicyDrafted, Decode: func(raw []byte) error {
		var p PolicyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.PolicyID == "" || p.CustomerID == "" {
			return errors.New("policy_id and customer_id are required")
		}
		return nil
	}})
	r.Register(event.Schema{EventType: PolicyLapsed, Decode: requireCustomer})
	decodeClaim := func(raw []byte) error {
		var p ClaimPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.CustomerID == "" {
			return errors.New("customer_id is required")
		}
		return nil
	}
	r.Register(event.Schema{EventType: ClaimFiled, Decode: decodeClaim})
	r.Register(event.Schema{EventType: ClaimApproved, Decode: decodeClaim})
	return r
}
