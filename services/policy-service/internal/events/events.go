// Package events declares the policy context's emitted event types and the
// foreign schemas it consumes.
package events

import (
	"encoding/json"
	"errors"

	"github.com/covergrid/covergrid/libs/event"
)

const (
	AggregatePolicy = "policy"

	PolicyDrafted   = "policy.drafted.v1"
	PolicyIssued    = "policy.issued.v1"
	PolicyDeclined  = "policy.declined.v1"
	PolicyLapsed    = "policy.lapsed.v1"
	PolicyCancelled = "policy.cancelled.v1"

	// Consumed from the risk context.
	AggregateRiskProfile = "risk_profile"
	RiskAssessed         = "risk.assessed.v1"

	// Consumed from the billing context.
	AggregateBillingAccount = "billing_account"
	InvoiceOverdue          = "billing.invoice.overdue.v1"
)

// PolicyPayload rides on every policy lifecycle event. Coverage is present so
// risk can assess a draft without a synchronous call back; premium is set
// from issuance onward.
type PolicyPayload struct {
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Product    string `json:"product,omitempty"`
	Coverage   string `json:"coverage,omitempty"`
	Premium    string `json:"premium,omitempty"`
}

type RiskAssessedPayload struct {
	ProfileID  string `json:"profile_id"`
	CustomerID string `json:"customer_id"`
	PolicyID   string `json:"policy_id"`
	Score      int    `json:"score"`
	Approved   bool   `json:"approved"`
}

type InvoiceOverduePayload struct {
	AccountID string `json:"account_id"`
	InvoiceID string `json:"invoice_id"`
	PolicyID  string `json:"policy_id"`
	Amount    string `json:"amount"`
	DueAt     string `json:"due_at"`
}

func Registry() *event.Registry {
	r := event.NewRegistry()
	r.Register(event.Schema{EventType: RiskAssessed, Decode: func(raw []byte) error {
		var p RiskAssessedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.PolicyID == "" {
			return errors.New("policy_id is required")
		}
		return nil
	}})
	r.Register(event.Schema{EventType: InvoiceOverdue, Decode: func(raw []byte) error {
		var p InvoiceOverduePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.PolicyID == "" {
			return errors.New("policy_id is required")
		}
		return nil
	}})
	return r
}
