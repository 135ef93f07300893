package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"omnichannel/inquiries/internal/models"
	"omnichannel/inquiries/internal/services"
)

// --- Mocks ---

// MockInquiryService implements services.IInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) SetSlaForRoom(ctx context.Context, roomID string, sla models.SlaAssignment) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID, sla)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) UnsetSlaForRoom(ctx context.Context, roomID string) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) BulkUnsetSla(ctx context.Context, roomIDs []string) (int64, error) {
	args := m.Called(ctx, roomIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInquiryService) SetPriorityForRoom(ctx context.Context, roomID string, priority models.Priority) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) UnsetPriorityForRoom(ctx context.Context, roomID string) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInquiryService) CreateInquiry(ctx context.Context, in models.NewInquiry) (*models.Inquiry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) FindOneByID(ctx context.Context, inquiryID string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) FindOneByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) FindOneQueuedByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) FindOneByToken(ctx context.Context, token string) (*models.Inquiry, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) GetQueuedInquiries(ctx context.Context, opts services.QueuedInquiriesOptions) ([]models.Inquiry, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) GetDistinctQueuedDepartments(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInquiryService) GetStatus(ctx context.Context, inquiryID string) (models.InquiryStatus, error) {
	args := m.Called(ctx, inquiryID)
	return args.Get(0).(models.InquiryStatus), args.Error(1)
}

func (m *MockInquiryService) GetCurrentSortedQueue(ctx context.Context, query services.QueuePositionQuery) ([]models.QueuedInquiryPosition, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QueuedInquiryPosition), args.Error(1)
}

func (m *MockInquiryService) FindNextAndLock(ctx context.Context, sortBy models.SortMechanism, department string) (*models.Inquiry, error) {
	args := m.Called(ctx, sortBy, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) Unlock(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) UnlockAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInquiryService) TakeInquiry(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) OpenInquiry(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) ReadyInquiry(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) QueueInquiry(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) QueueInquiryAndRemoveDefaultAgent(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) SetDepartmentByInquiryID(ctx context.Context, inquiryID, department string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ChangeDepartmentIDByRoomID(ctx context.Context, roomID, department string) (bool, error) {
	args := m.Called(ctx, roomID, department)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) SetNameByRoomID(ctx context.Context, roomID, name string) (bool, error) {
	args := m.Called(ctx, roomID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) SetLastMessageByRoomID(ctx context.Context, roomID string, message models.MessageSnapshot) (bool, error) {
	args := m.Called(ctx, roomID, message)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) SetDefaultAgentByID(ctx context.Context, inquiryID string, agent models.DefaultAgent) (bool, error) {
	args := m.Called(ctx, inquiryID, agent)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) RemoveDefaultAgentByID(ctx context.Context, inquiryID string) (bool, error) {
	args := m.Called(ctx, inquiryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) UpdateVisitorStatus(ctx context.Context, token string, status models.VisitorStatus) (bool, error) {
	args := m.Called(ctx, token, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockInquiryService) RemoveByRoomID(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInquiryService) RemoveByVisitorToken(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingsService implements services.ISettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) SubscribeToChanges(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *MockSettingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	args := m.Called(ctx, key, defaultValue)
	return args.String(0)
}

func (m *MockSettingsService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	args := m.Called(ctx, key, defaultValue)
	return args.Bool(0)
}

func (m *MockSettingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	return args.Int(0)
}

func (m *MockSettingsService) GetStringSlice(ctx context.Context, key string) []string {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockSettingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockSettingsService) SetValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	args := m.Called(ctx, key, value, isPublic)
	return args.Error(0)
}

func (m *MockSettingsService) QueueSortMechanism(ctx context.Context) models.SortMechanism {
	args := m.Called(ctx)
	return args.Get(0).(models.SortMechanism)
}

func (m *MockSettingsService) DispatchDepartments(ctx context.Context) []string {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

// MockAgentAvailabilityService implements services.IAgentAvailabilityService
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

// MockDispatchService implements services.IDispatchService
type MockDispatchService struct {
	mock.Mock
}

func (m *MockDispatchService) DispatchNext(ctx context.Context, department string) (*services.DispatchResult, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DispatchResult), args.Error(1)
}

// MockAsynqClient implements tasks.Enqueuer
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

var (
	_ services.IInquiryService           = (*MockInquiryService)(nil)
	_ services.ISettingsService          = (*MockSettingsService)(nil)
	_ services.IAgentAvailabilityService = (*MockAgentAvailabilityService)(nil)
	_ services.IDispatchService          = (*MockDispatchService)(nil)
)
