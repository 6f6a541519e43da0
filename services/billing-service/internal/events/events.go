// Package events declares the billing context's emitted event types and the
// foreign schemas it consumes.
package events

import (
	"encoding/json"
	"errors"

	"github.com/covergrid/covergrid/libs/event"
)

const (
	AggregateBillingAccount = "billing_account"

	AccountOpened   = "billing.account.opened.v1"
	AccountFrozen   = "billing.account.frozen.v1"
	AccountUnfrozen = "billing.account.unfrozen.v1"
	PayoutIssued    = "billing.payout.issued.v1"
	PayoutFailed    = "billing.payout.failed.v1"
	InvoiceOverdue  = "billing.invoice.overdue.v1"

	// Consumed from the policy context.
	AggregatePolicy = "policy"
	PolicyIssued    = "policy.issued.v1"

	// Consumed from the claims context.
	AggregateClaim = "claim"
	ClaimApproved  = "claim.approved.v1"
)

type AccountPayload struct {
	AccountID  string `json:"account_id"`
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
}

type PayoutPayload struct {
	AccountID string `json:"account_id"`
	ClaimID   string `json:"claim_id"`
	PolicyID  string `json:"policy_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

type InvoicePayload struct {
	AccountID string `json:"account_id"`
	InvoiceID string `json:"invoice_id"`
	PolicyID  string `json:"policy_id"`
	Amount    string `json:"amount"`
	DueAt     string `json:"due_at"`
}

// PolicyIssuedPayload mirrors the policy context's contract; unknown fields
// from newer producers are ignored.
type PolicyIssuedPayload struct {
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Premium    string `json:"premium"`
}

type ClaimApprovedPayload struct {
	ClaimID    string `json:"claim_id"`
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
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
	r.Register(event.Schema{EventType: ClaimApproved, Decode: func(raw []byte) error {
		var p ClaimApprovedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.ClaimID == "" || p.PolicyID == "" || p.Amount == "" {
			return errors.New("claim_id, policy_id and amount are required")
		}
		return nil
	}})
	return r
}
