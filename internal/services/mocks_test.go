package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"omnichannel/inquiries/internal/models"
)

// --- Mocks ---

// MockInquiryService overrides the methods dispatch uses; anything else
// panics through the nil embedded interface.
type MockInquiryService struct {
	IInquiryService
	mock.Mock
}

func (m *MockInquiryService) FindNextAndLock(ctx context.Context, sortBy models.SortMechanism, department string) (*models.Inquiry, error) {
	args := m.Called(ctx, sortBy, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) TakeInquiry(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) Unlock(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) RemoveDefaultAgentByID(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

// MockSettingsService
type MockSettingsService struct {
	ISettingsService
	mock.Mock
}

func (m *MockSettingsService) QueueSortMechanism(ctx context.Context) models.SortMechanism {
	args := m.Called(ctx)
	return args.Get(0).(models.SortMechanism)
}

// MockAgentAvailabilityService
type MockAgentAvailabilityService struct {
	mock.Mock
}

func (m *MockAgentAvailabilityService) SetAvailable(ctx context.Context, agentID string, departments []string) error {
	args := m.Called(ctx, agentID, departments)
	return args.Error(0)
}

func (m *MockAgentAvailabilityService) SetUnavailable(ctx context.Context, agentID string, departments []string) error {
	args := m.Called(ctx, agentID, departments)
	return args.Error(0)
}

func (m *MockAgentAvailabilityService) PickAgent(ctx context.Context, department string) (string, error) {
	args := m.Called(ctx, department)
	return args.String(0), args.Error(1)
}

func (m *MockAgentAvailabilityService) IsAvailable(ctx context.Context, agentID, department string) (bool, error) {
	args := m.Called(ctx, agentID, department)
	return args.Bool(0), args.Error(1)
}

func (m *MockAgentAvailabilityService) AvailableAgents(ctx context.Context, department string) ([]string, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
