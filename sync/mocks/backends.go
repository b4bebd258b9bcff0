package mocks

import (
	"context"

	"github.com/homemade/capture2sailthru/sync"
	"github.com/stretchr/testify/mock"
)

// CaptureBackend is a mock implementation of sync.CaptureBackend
type CaptureBackend struct {
	mock.Mock
}

func (m *CaptureBackend) GetRecord(ctx context.Context, id string, specs []sync.AttributeSpec) (sync.Record, error) {
	args := m.Called(ctx, id, specs)
	if record, ok := args.Get(0).(sync.Record); ok {
		return record, args.Error(1)
	}
	return sync.Record{}, args.Error(1)
}

// CampaignAPI is a mock implementation of sync.CampaignAPI
type CampaignAPI struct {
	mock.Mock
}

func (m *CampaignAPI) APIGet(ctx context.Context, resource string, payload string) (sync.Response, error) {
	args := m.Called(ctx, resource, payload)
	return args.Get(0).(sync.Response), args.Error(1)
}

func (m *CampaignAPI) APIPost(ctx context.Context, resource string, payload string) (sync.Response, error) {
	args := m.Called(ctx, resource, payload)
	return args.Get(0).(sync.Response), args.Error(1)
}
