package services

import (
	"context"

	"github.com/ruralpay/ledger/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event models.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

const (
	accountA = "6f1c2b9e-3d4a-4c5b-8e7f-9a0b1c2d3e4f"
	accountB = "0a1b2c3d-4e5f-4a6b-9c7d-8e9f0a1b2c3d"
)
