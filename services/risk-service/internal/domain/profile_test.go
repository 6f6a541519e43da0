package domain

import "testing"

func TestNewProfileApprovedAtBaseScore(t *testing.T) {
	p := OpenProfile("rp-1", "cus-1")
	if p.Score != BaseScore || p.Version != 1 {
		t.Fatalf("new profile: score=%d version=%d", p.Score, p.Version)
	}
	a := p.Assess(75)
	if !a.Approved || a.Score != BaseScore {
		t.Fatalf("assessment at base score: %+v", a)
	}
	if p.Version != 2 {
		t.Fatalf("assessment did not bump version: %d", p.Version)
	}
}

func TestScoreAccumulation(t *testing.T) {
	p := OpenProfile("rp-1", "cus-1")

	p.RecordClaimFiled()    // 55
	p.RecordClaimApproved() // 65
	p.PenalizeLapse()       // 80

	if p.Score != 80 {
		t.Fatalf("score = %d, want 80", p.Score)
	}
	if p.FiledClaims != 1 || p.ApprovedClaims != 1 || p.Lapses != 1 {
		t.Fatalf("counters: %d/%d/%d", p.FiledClaims, p.ApprovedClaims, p.Lapses)
	}
	if a := p.Assess(75); a.Approved {
		t.Fatalf("score 80 approved against threshold 75")
	}
	if p.Version != 5 {
		t.Fatalf("version = %d, want 5", p.Version)
	}
}

func TestScoreClampsAtHundred(t *testing.T) {
	p := OpenProfile("rp-1", "cus-1")
	for i := 0; i < 10; i++ {
		p.PenalizeLapse()
	}
	if p.Score != 100 {
		t.Fatalf("score = %d, want clamp at 100", p.Score)
	}
}
