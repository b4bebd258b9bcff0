package mocks

import (
	"context"

	"github.com/homemade/capture2sailthru/sync"
	"github.com/stretchr/testify/mock"
)

// Syncer is a mock implementation of server.Syncer
type Syncer struct {
	mock.Mock
}

func (m *Syncer) Sync(ctx context.Context, payload []sync.WebhookEntry) sync.Outcome {
	args := m.Called(ctx, payload)
	return args.Get(0).(sync.Outcome)
}
