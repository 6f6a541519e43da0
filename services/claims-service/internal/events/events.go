// Package events declares the event types the claims context emits and the
// foreign schemas it consumes. Payload structs stay tolerant: unknown fields
// from newer producers are ignored, which is the backward-compatible rule.
package events

import (
	"encoding/json"
	"errors"

	"github.com/covergrid/covergrid/libs/event"
)

const (
	AggregateClaim = "claim"

	ClaimFiled    = "claim.filed.v1"
	ClaimApproved = "claim.approved.v1"
	ClaimRejected = "claim.rejected.v1"
	ClaimPaid     = "claim.paid.v1"
	ClaimReopened = "claim.reopened.v1"

	// Consumed from the billing context.
	AggregateBillingAccount = "billing_account"
	PayoutIssued            = "billing.payout.issued.v1"
	PayoutFailed            = "billing.payout.failed.v1"
)

// ClaimPayload rides on every claim lifecycle event.
type ClaimPayload struct {
	ClaimID    string `json:"claim_id"`
	PolicyID   string `json:"policy_id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
}

// PayoutPayload is billing's payout outcome. Reason is set on failures.
type PayoutPayload struct {
	AccountID string `json:"account_id"`
	ClaimID   string `json:"claim_id"`
	PolicyID  string `json:"policy_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// Registry lists the schemas this service understands, resolved at startup.
func Registry() *event.Registry {
	r := event.NewRegistry()
	r.Register(event.Schema{EventType: PayoutIssued, Decode: decodePayout})
	r.Register(event.Schema{EventType: PayoutFailed, Decode: decodePayout})
	return r
}

func decodePayout(raw []byte) error {
	var p PayoutPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.ClaimID == "" {
		return errors.New("claim_id is required")
	}
	return nil
}
