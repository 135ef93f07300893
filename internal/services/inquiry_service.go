package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/apperrors"
	"omnichannel/inquiries/internal/db"
	"omnichannel/inquiries/internal/models"
)

// IInquiryService is the livechat inquiry queue store.
//
// Lookups return nil (or an empty value) when nothing matches; only store
// failures are errors. Single-document mutations report whether a document
// matched, bulk ones how many were affected.
type IInquiryService interface {
	IInquiryExtension

	EnsureIndexes(ctx context.Context) error
	CreateInquiry(ctx context.Context, in models.NewInquiry) (*models.Inquiry, error)

	FindOneByID(ctx context.Context, inquiryID string) (*models.Inquiry, error)
	FindOneByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error)
	FindOneQueuedByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error)
	FindOneByToken(ctx context.Context, token string) (*models.Inquiry, error)
	GetQueuedInquiries(ctx context.Context, opts QueuedInquiriesOptions) ([]models.Inquiry, error)
	GetDistinctQueuedDepartments(ctx context.Context) ([]string, error)
	GetStatus(ctx context.Context, inquiryID string) (models.InquiryStatus, error)
	GetCurrentSortedQueue(ctx context.Context, query QueuePositionQuery) ([]models.QueuedInquiryPosition, error)

	FindNextAndLock(ctx context.Context, sortBy models.SortMechanism, department string) (*models.Inquiry, error)
	Unlock(ctx context.Context, inquiryID string) (bool, error)
	UnlockAll(ctx context.Context) (int64, error)

	TakeInquiry(ctx context.Context, inquiryID string) (bool, error)
	OpenInquiry(ctx context.Context, inquiryID string) (bool, error)
	ReadyInquiry(ctx context.Context, inquiryID string) (bool, error)
	QueueInquiry(ctx context.Context, inquiryID string) (bool, error)
	QueueInquiryAndRemoveDefaultAgent(ctx context.Context, inquiryID string) (bool, error)

	SetDepartmentByInquiryID(ctx context.Context, inquiryID, department string) (*models.Inquiry, error)
	ChangeDepartmentIDByRoomID(ctx context.Context, roomID, department string) (bool, error)
	SetNameByRoomID(ctx context.Context, roomID, name string) (bool, error)
	SetLastMessageByRoomID(ctx context.Context, roomID string, message models.MessageSnapshot) (bool, error)
	SetDefaultAgentByID(ctx context.Context, inquiryID string, agent models.DefaultAgent) (bool, error)
	RemoveDefaultAgentByID(ctx context.Context, inquiryID string) (bool, error)
	UpdateVisitorStatus(ctx context.Context, token string, status models.VisitorStatus) (bool, error)

	RemoveByRoomID(ctx context.Context, roomID string) (int64, error)
	RemoveByVisitorToken(ctx context.Context, token string) (int64, error)
}

const inquiriesCollection = "livechat_inquiry"

// InquiryLockTTL is how long a claim lease holds before another worker may re-claim.
const InquiryLockTTL = 5 * time.Second

// QueuedInquiriesOptions filters and pages GetQueuedInquiries.
// An empty Department lists every queued inquiry.
type QueuedInquiriesOptions struct {
	Department string
	SortBy     models.SortMechanism
	Limit      int64
	Skip       int64
}

// QueuePositionQuery selects the queue to rank. An empty Department ranks
// every queued inquiry across all departments, which is not the claim order of
// FindNextAndLock with an empty department: that claim only serves inquiries
// without a department. A non-empty InquiryID narrows the result to that row.
type QueuePositionQuery struct {
	InquiryID  string
	Department string
	SortBy     models.SortMechanism
}

// InquiryServiceOption customises NewInquiryService.
type InquiryServiceOption func(*inquiryService)

// WithExtension installs the SLA/priority implementation.
func WithExtension(ext IInquiryExtension) InquiryServiceOption {
	return func(s *inquiryService) {
		if ext != nil {
			s.IInquiryExtension = ext
		}
	}
}

// WithClock overrides the time source used for leases and lifecycle timestamps.
func WithClock(now func() time.Time) InquiryServiceOption {
	return func(s *inquiryService) {
		s.now = now
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) InquiryServiceOption {
	return func(s *inquiryService) {
		s.logger = logger
	}
}

// inquiryService implements IInquiryService.
type inquiryService struct {
	IInquiryExtension
	db     *mongo.Database
	now    func() time.Time
	logger *zap.Logger
}

// NewInquiryService creates a new InquiryService with the community extension
// unless WithExtension says otherwise.
func NewInquiryService(db *mongo.Database, opts ...InquiryServiceOption) IInquiryService {
	s := &inquiryService{
		IInquiryExtension: NewCommunityExtension(),
		db:                db,
		now:               func() time.Time { return time.Now().UTC() },
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *inquiryService) collection() *mongo.Collection {
	return s.db.Collection(inquiriesCollection)
}

// EnsureIndexes creates the indexes the queue's query patterns rely on.
func (s *inquiryService) EnsureIndexes(ctx context.Context) error {
	queuedOnly := bson.M{"status": bson.M{"$eq": models.InquiryStatusQueued}}
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "rid", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "message", Value: 1}}},
		{Keys: bson.D{{Key: "ts", Value: 1}}},
		{Keys: bson.D{{Key: "department", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "priorityId", Value: 1}, {Key: "priorityWeight", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "priorityWeight", Value: 1}, {Key: "ts", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(queuedOnly),
		},
		{
			Keys:    bson.D{{Key: "estimatedWaitingTimeQueue", Value: 1}, {Key: "ts", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(queuedOnly),
		},
		{Keys: bson.D{{Key: "v.token", Value: 1}, {Key: "status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "locked", Value: 1}, {Key: "lockedAt", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	names, err := s.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", inquiriesCollection, err)
	}
	s.logger.Info("inquiry indexes ensured", zap.Strings("indexes", names))
	return nil
}

// CreateInquiry enqueues a new inquiry. One inquiry per active room is the
// caller's responsibility.
func (s *inquiryService) CreateInquiry(ctx context.Context, in models.NewInquiry) (*models.Inquiry, error) {
	if in.RoomID == "" {
		return nil, apperrors.NewValidationError("rid is required")
	}
	if in.Visitor.Token == "" {
		return nil, apperrors.NewValidationError("visitor token is required")
	}

	now := s.now()
	ts := now
	if in.Ts != nil {
		ts = in.Ts.UTC()
	}
	inquiry := &models.Inquiry{
		RoomID:                    in.RoomID,
		Name:                      in.Name,
		Message:                   in.Message,
		Department:                in.Department,
		Status:                    models.InquiryStatusQueued,
		Visitor:                   in.Visitor,
		Source:                    in.Source,
		DefaultAgent:              in.DefaultAgent,
		PriorityWeight:            models.PriorityWeightNotSpecified,
		EstimatedWaitingTimeQueue: models.DefaultEstimatedWaitingTimeQueue,
		Ts:                        ts,
		QueuedAt:                  &now,
	}

	err := db.WithRetries(func() error {
		inquiry.GenID()
		_, err := s.collection().InsertOne(ctx, inquiry)
		return err
	}, db.DefaultMaxRetries, db.IsMongoDuplicateKeyError)
	if err != nil {
		return nil, fmt.Errorf("failed to create inquiry for room %s: %w", in.RoomID, err)
	}

	s.logger.Debug("inquiry queued",
		zap.String("inquiry_id", inquiry.ID),
		zap.String("rid", inquiry.RoomID),
		zap.String("department", inquiry.Department),
	)
	return inquiry, nil
}

// findOne decodes the first match of filter, returning nil when nothing matches.
func (s *inquiryService) findOne(ctx context.Context, filter bson.M) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.collection().FindOne(ctx, filter).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &inquiry, nil
}

func (s *inquiryService) FindOneByID(ctx context.Context, inquiryID string) (*models.Inquiry, error) {
	inquiry, err := s.findOne(ctx, bson.M{"_id": inquiryID})
	if err != nil {
		return nil, fmt.Errorf("database error finding inquiry %s: %w", inquiryID, err)
	}
	return inquiry, nil
}

func (s *inquiryService) FindOneByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error) {
	inquiry, err := s.findOne(ctx, bson.M{"rid": roomID})
	if err != nil {
		return nil, fmt.Errorf("database error finding inquiry for room %s: %w", roomID, err)
	}
	return inquiry, nil
}

func (s *inquiryService) FindOneQueuedByRoomID(ctx context.Context, roomID string) (*models.Inquiry, error) {
	inquiry, err := s.findOne(ctx, bson.M{"rid": roomID, "status": models.InquiryStatusQueued})
	if err != nil {
		return nil, fmt.Errorf("database error finding queued inquiry for room %s: %w", roomID, err)
	}
	return inquiry, nil
}

// FindOneByToken only considers queued inquiries.
func (s *inquiryService) FindOneByToken(ctx context.Context, token string) (*models.Inquiry, error) {
	inquiry, err := s.findOne(ctx, bson.M{"v.token": token, "status": models.InquiryStatusQueued})
	if err != nil {
		return nil, fmt.Errorf("database error finding queued inquiry for visitor token: %w", err)
	}
	return inquiry, nil
}

func (s *inquiryService) GetQueuedInquiries(ctx context.Context, opts QueuedInquiriesOptions) ([]models.Inquiry, error) {
	filter := bson.M{"status": models.InquiryStatusQueued}
	if opts.Department != "" {
		filter["department"] = opts.Department
	}

	findOpts := options.Find().SetSort(SortQuery(opts.SortBy))
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	cursor, err := s.collection().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query queued inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	results := []models.Inquiry{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode queued inquiries: %w", err)
	}
	return results, nil
}

// GetDistinctQueuedDepartments lists departments with at least one queued
// inquiry. The undepartmented queue is not represented.
func (s *inquiryService) GetDistinctQueuedDepartments(ctx context.Context) ([]string, error) {
	values, err := s.collection().Distinct(ctx, "department", bson.M{"status": models.InquiryStatusQueued})
	if err != nil {
		return nil, fmt.Errorf("failed to list queued departments: %w", err)
	}
	departments := make([]string, 0, len(values))
	for _, v := range values {
		if dept, ok := v.(string); ok && dept != "" {
			departments = append(departments, dept)
		}
	}
	return departments, nil
}

// GetStatus returns an empty status when the inquiry does not exist.
func (s *inquiryService) GetStatus(ctx context.Context, inquiryID string) (models.InquiryStatus, error) {
	inquiry, err := s.FindOneByID(ctx, inquiryID)
	if err != nil || inquiry == nil {
		return "", err
	}
	return inquiry.Status, nil
}

// GetCurrentSortedQueue ranks queued inquiries with SortQuery. The whole
// filtered queue is sorted and numbered before narrowing to InquiryID, so the
// position is the inquiry's rank within its queue.
func (s *inquiryService) GetCurrentSortedQueue(ctx context.Context, query QueuePositionQuery) ([]models.QueuedInquiryPosition, error) {
	match := bson.M{"status": models.InquiryStatusQueued}
	if query.Department != "" {
		match["department"] = query.Department
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: SortQuery(query.SortBy)}},
		{{Key: "$group", Value: bson.M{
			"_id": 1,
			"inquiry": bson.M{"$push": bson.M{
				"_id":        "$_id",
				"rid":        "$rid",
				"name":       "$name",
				"ts":         "$ts",
				"status":     "$status",
				"department": "$department",
			}},
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":              "$inquiry",
			"includeArrayIndex": "position",
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":        "$inquiry._id",
			"rid":        "$inquiry.rid",
			"name":       "$inquiry.name",
			"ts":         "$inquiry.ts",
			"status":     "$inquiry.status",
			"department": "$inquiry.department",
			"position":   1,
		}}},
	}
	if query.InquiryID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"_id": query.InquiryID}}})
	}

	collection := s.db.Collection(inquiriesCollection,
		options.Collection().SetReadPreference(readpref.SecondaryPreferred()))
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate queue positions: %w", err)
	}
	defer cursor.Close(ctx)

	results := []models.QueuedInquiryPosition{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode queue positions: %w", err)
	}
	return results, nil
}

// claimFilter selects queued inquiries of one queue that are unclaimed or whose
// lease is older than InquiryLockTTL. An empty department selects the
// undepartmented queue.
func claimFilter(department string, now time.Time) bson.M {
	filter := bson.M{
		"status": models.InquiryStatusQueued,
		"$or": bson.A{
			bson.M{"locked": true, "lockedAt": bson.M{"$lte": now.Add(-InquiryLockTTL)}},
			bson.M{"locked": false},
			bson.M{"locked": bson.M{"$exists": false}},
		},
	}
	if department != "" {
		filter["department"] = department
	} else {
		filter["department"] = bson.M{"$exists": false}
	}
	return filter
}

// FindNextAndLock atomically claims the first eligible inquiry of a queue and
// returns it with its new lease. It returns nil, nil when the queue is empty or
// every entry is freshly leased. Callers release with Unlock or let the lease lapse.
func (s *inquiryService) FindNextAndLock(ctx context.Context, sortBy models.SortMechanism, department string) (*models.Inquiry, error) {
	now := s.now()
	opts := options.FindOneAndUpdate().
		SetSort(SortQuery(sortBy)).
		SetReturnDocument(options.After)

	var inquiry models.Inquiry
	err := s.collection().FindOneAndUpdate(ctx,
		claimFilter(department, now),
		bson.M{"$set": bson.M{"locked": true, "lockedAt": now}},
		opts,
	).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim next inquiry (department=%q): %w", department, err)
	}
	return &inquiry, nil
}

var unsetLease = bson.M{"locked": 1, "lockedAt": 1}

// updateOne runs a single-document update and reports whether it matched.
func (s *inquiryService) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	result, err := s.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (s *inquiryService) Unlock(ctx context.Context, inquiryID string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{"$unset": unsetLease})
	if err != nil {
		return false, fmt.Errorf("failed to unlock inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

// UnlockAll releases every lease. Documents already released are not touched,
// so re-running it after a partial failure converges.
func (s *inquiryService) UnlockAll(ctx context.Context) (int64, error) {
	result, err := s.collection().UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"lockedAt": bson.M{"$exists": true}},
			bson.M{"locked": bson.M{"$exists": true}},
		}},
		bson.M{"$unset": unsetLease},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock all inquiries: %w", err)
	}
	s.logger.Info("released inquiry leases", zap.Int64("count", result.ModifiedCount))
	return result.ModifiedCount, nil
}

// TakeInquiry moves the inquiry to taken, forgetting its default agent,
// inactivity timer and lease.
func (s *inquiryService) TakeInquiry(ctx context.Context, inquiryID string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{
		"$set": bson.M{"status": models.InquiryStatusTaken, "takenAt": s.now()},
		"$unset": bson.M{
			"defaultAgent":                   1,
			"estimatedInactivityCloseTimeAt": 1,
			"locked":                         1,
			"lockedAt":                       1,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to take inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

func (s *inquiryService) OpenInquiry(ctx context.Context, inquiryID string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{
		"$set":   bson.M{"status": models.InquiryStatusOpen},
		"$unset": unsetLease,
	})
	if err != nil {
		return false, fmt.Errorf("failed to open inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

func (s *inquiryService) ReadyInquiry(ctx context.Context, inquiryID string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{
		"$set":   bson.M{"status": models.InquiryStatusReady},
		"$unset": unsetLease,
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark inquiry %s ready: %w", inquiryID, err)
	}
	return matched, nil
}

func (s *inquiryService) queue(ctx context.Context, inquiryID string, removeDefaultAgent bool) (bool, error) {
	unset := bson.M{"takenAt": 1, "locked": 1, "lockedAt": 1}
	if removeDefaultAgent {
		unset["defaultAgent"] = 1
	}
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{
		"$set":   bson.M{"status": models.InquiryStatusQueued, "queuedAt": s.now()},
		"$unset": unset,
	})
	if err != nil {
		return false, fmt.Errorf("failed to queue inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

// QueueInquiry puts the inquiry back in the queue with a fresh queuedAt.
func (s *inquiryService) QueueInquiry(ctx context.Context, inquiryID string) (bool, error) {
	return s.queue(ctx, inquiryID, false)
}

// QueueInquiryAndRemoveDefaultAgent re-queues and forgets the pre-assigned agent.
func (s *inquiryService) QueueInquiryAndRemoveDefaultAgent(ctx context.Context, inquiryID string) (bool, error) {
	return s.queue(ctx, inquiryID, true)
}

// departmentUpdate sets the department, or removes it for the empty string
// so the inquiry joins the undepartmented queue.
func departmentUpdate(department string) bson.M {
	if department == "" {
		return bson.M{"$unset": bson.M{"department": 1}}
	}
	return bson.M{"$set": bson.M{"department": department}}
}

func (s *inquiryService) SetDepartmentByInquiryID(ctx context.Context, inquiryID, department string) (*models.Inquiry, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var inquiry models.Inquiry
	err := s.collection().FindOneAndUpdate(ctx, bson.M{"_id": inquiryID}, departmentUpdate(department), opts).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to set department of inquiry %s: %w", inquiryID, err)
	}
	return &inquiry, nil
}

func (s *inquiryService) ChangeDepartmentIDByRoomID(ctx context.Context, roomID, department string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"rid": roomID}, departmentUpdate(department))
	if err != nil {
		return false, fmt.Errorf("failed to change department for room %s: %w", roomID, err)
	}
	return matched, nil
}

func (s *inquiryService) SetNameByRoomID(ctx context.Context, roomID, name string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"rid": roomID}, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return false, fmt.Errorf("failed to set name for room %s: %w", roomID, err)
	}
	return matched, nil
}

func (s *inquiryService) SetLastMessageByRoomID(ctx context.Context, roomID string, message models.MessageSnapshot) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"rid": roomID}, bson.M{"$set": bson.M{"lastMessage": message}})
	if err != nil {
		return false, fmt.Errorf("failed to set last message for room %s: %w", roomID, err)
	}
	return matched, nil
}

func (s *inquiryService) SetDefaultAgentByID(ctx context.Context, inquiryID string, agent models.DefaultAgent) (bool, error) {
	if agent.AgentID == "" {
		return false, apperrors.NewValidationError("agentId is required")
	}
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{"$set": bson.M{"defaultAgent": agent}})
	if err != nil {
		return false, fmt.Errorf("failed to set default agent of inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

func (s *inquiryService) RemoveDefaultAgentByID(ctx context.Context, inquiryID string) (bool, error) {
	matched, err := s.updateOne(ctx, bson.M{"_id": inquiryID}, bson.M{"$unset": bson.M{"defaultAgent": 1}})
	if err != nil {
		return false, fmt.Errorf("failed to remove default agent of inquiry %s: %w", inquiryID, err)
	}
	return matched, nil
}

// UpdateVisitorStatus only touches the visitor's queued inquiry.
func (s *inquiryService) UpdateVisitorStatus(ctx context.Context, token string, status models.VisitorStatus) (bool, error) {
	matched, err := s.updateOne(ctx,
		bson.M{"v.token": token, "status": models.InquiryStatusQueued},
		bson.M{"$set": bson.M{"v.status": status}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update visitor status: %w", err)
	}
	return matched, nil
}

func (s *inquiryService) RemoveByRoomID(ctx context.Context, roomID string) (int64, error) {
	result, err := s.collection().DeleteOne(ctx, bson.M{"rid": roomID})
	if err != nil {
		return 0, fmt.Errorf("failed to remove inquiry for room %s: %w", roomID, err)
	}
	return result.DeletedCount, nil
}

// RemoveByVisitorToken deletes every inquiry of a visitor session, whatever its status.
func (s *inquiryService) RemoveByVisitorToken(ctx context.Context, token string) (int64, error) {
	result, err := s.collection().DeleteMany(ctx, bson.M{"v.token": token})
	if err != nil {
		return 0, fmt.Errorf("failed to remove inquiries for visitor token: %w", err)
	}
	return result.DeletedCount, nil
}
