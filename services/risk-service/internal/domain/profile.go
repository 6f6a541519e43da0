// Package domain holds the risk profile aggregate. A profile opens when the
// customer registers and accumulates score from claim and lapse history; it
// is never deleted, only recomputed.
package domain

import (
	"time"
)

const (
	// BaseScore is where every new profile starts. Higher is riskier.
	BaseScore = 50

	minScore = 0
	maxScore = 100

	claimFiledWeight    = 5
	claimApprovedWeight = 10
	lapseWeight         = 15
)

type Profile struct {
	ID             string
	CustomerID     string
	Score          int
	FiledClaims    int
	ApprovedClaims int
	Lapses         int
	Version        int64
	OpenedAt       time.Time
	UpdatedAt      time.Time
}

func OpenProfile(id, customerID string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:         id,
		CustomerID: customerID,
		Score:      BaseScore,
		Version:    1,
		OpenedAt:   now,
		UpdatedAt:  now,
	}
}

func (p *Profile) RecordClaimFiled() {
	p.FiledClaims++
	p.bump(claimFiledWeight)
}

func (p *Profile) RecordClaimApproved() {
	p.ApprovedClaims++
	p.bump(claimApprovedWeight)
}

func (p *Profile) PenalizeLapse() {
	p.Lapses++
	p.bump(lapseWeight)
}

// Assessment is the verdict on one policy draft at the profile's current
// score. The assessment itself is a recorded fact and bumps the version.
type Assessment struct {
	Score    int
	Approved bool
}

// Assess approves drafts for profiles at or below maxApprovedScore.
func (p *Profile) Assess(maxApprovedScore int) Assessment {
	p.touch()
	return Assessment{Score: p.Score, Approved: p.Score <= maxApprovedScore}
}

func (p *Profile) bump(delta int) {
	p.Score += delta
	if p.Score > maxScore {
		p.Score = maxScore
	}
	if p.Score < minScore {
		p.Score = minScore
	}
	p.touch()
}

func (p *Profile) touch() {
	p.Version++
	p.UpdatedAt = time.Now().UTC()
}
