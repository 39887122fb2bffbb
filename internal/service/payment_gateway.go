package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"lifecycle-service/config"
	"lifecycle-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockPaymentGateway is the development stand-in for the real payment
// provider. Replace with the real provider integration before going live.
// It honors context deadlines, so the executor's timeout handling is
// exercised the same way it will be in production.
type MockPaymentGateway struct {
	successRate float64
	latencyMax  time.Duration
	logger      *zap.Logger
}

// NewMockPaymentGateway creates a mock gateway from config.
func NewMockPaymentGateway(cfg config.PaymentConfig) *MockPaymentGateway {
	return &MockPaymentGateway{
		successRate: cfg.MockSuccessRate,
		latencyMax:  cfg.MockLatencyMax,
		logger:      util.GetLogger(),
	}
}

func (g *MockPaymentGateway) simulate(ctx context.Context, operation string) (PaymentOutcome, error) {
	latency := time.Duration(rand.Int63n(int64(g.latencyMax) + 1))
	select {
	case <-ctx.Done():
		return PaymentOutcome{}, ctx.Err()
	case <-time.After(latency):
	}

	if rand.Float64() >= g.successRate {
		g.logger.Warn("Mock gateway declined", zap.String("operation", operation))
		return PaymentOutcome{
			ErrorCode:    "mock_declined",
			ErrorMessage: fmt.Sprintf("mock gateway declined %s", operation),
		}, nil
	}

	return PaymentOutcome{
		Success:     true,
		ReferenceID: fmt.Sprintf("TXN-%s", uuid.New().String()[:8]),
	}, nil
}

// Authorize places a hold on the customer's payment method.
func (g *MockPaymentGateway) Authorize(ctx context.Context, req PaymentRequest) (PaymentOutcome, error) {
	return g.simulate(ctx, "authorize")
}

// Charge authorizes and captures in one step.
func (g *MockPaymentGateway) Charge(ctx context.Context, req PaymentRequest) (PaymentOutcome, error) {
	return g.simulate(ctx, "charge")
}

// Capture settles a previous authorization.
func (g *MockPaymentGateway) Capture(ctx context.Context, reference string, amount int64) (PaymentOutcome, error) {
	return g.simulate(ctx, "capture")
}

// Void releases a previous authorization.
func (g *MockPaymentGateway) Void(ctx context.Context, reference string) (PaymentOutcome, error) {
	return g.simulate(ctx, "void")
}

// Refund returns captured money to the customer.
func (g *MockPaymentGateway) Refund(ctx context.Context, reference string, amount int64) (PaymentOutcome, error) {
	return g.simulate(ctx, "refund")
}
