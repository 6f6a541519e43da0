//go:build protogen

package riskcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/covergrid/covergrid/libs/grpcx"
	riskv1 "github.com/covergrid/covergrid/protos/gen/risk/v1"
)

type grpcProvider struct {
	client riskv1.RiskServiceClient
}

func NewRiskScoreProvider(logger *slog.Logger, addr string) (Provider, error) {
	if addr == "" {
		return NewStaticProvider(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		logger.Warn("risk score provider unavailable, drafts proceed without advisory score", "err", err)
		return NewStaticProvider(), nil
	}

	logger.Info("risk score provider enabled", "addr", addr)
	return &grpcProvider{client: riskv1.NewRiskServiceClient(conn)}, nil
}

func (p *grpcProvider) Score(ctx context.Context, customerID string) (int, error) {
	resp, err := p.client.GetRiskScore(ctx, &riskv1.RiskScoreRequest{CustomerId: customerID})
	if err != nil {
		return 0, err
	}
	return int(resp.GetScore()), nil
}
