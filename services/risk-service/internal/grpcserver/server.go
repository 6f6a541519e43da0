//go:build protogen

package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	riskv1 "github.com/covergrid/covergrid/protos/gen/risk/v1"
	"github.com/covergrid/covergrid/services/risk-service/internal/storage"
)

type server struct {
	riskv1.UnimplementedRiskServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	riskv1.RegisterRiskServiceServer(grpcServer, &server{repo: repo})
}

func (s *server) GetRiskScore(ctx context.Context, req *riskv1.RiskScoreRequest) (*riskv1.RiskScoreResponse, error) {
	if req.GetCustomerId() == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_id is required")
	}
	p, err := s.repo.GetByCustomer(ctx, req.GetCustomerId())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "no risk profile for customer")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "profile lookup failed")
	}
	return &riskv1.RiskScoreResponse{
		CustomerId:     p.CustomerID,
		ProfileId:      p.ID,
		Score:          int32(p.Score),
		FiledClaims:    int32(p.FiledClaims),
		ApprovedClaims: int32(p.ApprovedClaims),
		Lapses:         int32(p.Lapses),
	}, nil
}
