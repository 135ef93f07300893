package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"omnichannel/inquiries/internal/apperrors"
	"omnichannel/inquiries/internal/models"
)

// IInquiryExtension holds the SLA and priority operations that only a richer
// edition provides. The inquiry service delegates to whichever implementation
// it was built with, so callers never change when one is swapped in.
type IInquiryExtension interface {
	SetSlaForRoom(ctx context.Context, roomID string, sla models.SlaAssignment) (*models.Inquiry, error)
	UnsetSlaForRoom(ctx context.Context, roomID string) (*models.Inquiry, error)
	BulkUnsetSla(ctx context.Context, roomIDs []string) (int64, error)
	SetPriorityForRoom(ctx context.Context, roomID string, priority models.Priority) (*models.Inquiry, error)
	UnsetPriorityForRoom(ctx context.Context, roomID string) (*models.Inquiry, error)
}

// communityExtension fails every call with apperrors.ErrUnsupportedCapability
// and never touches storage.
type communityExtension struct{}

// NewCommunityExtension returns the extension installed when no edition overrides it.
func NewCommunityExtension() IInquiryExtension {
	return communityExtension{}
}

func (communityExtension) SetSlaForRoom(context.Context, string, models.SlaAssignment) (*models.Inquiry, error) {
	return nil, apperrors.Unsupported("SetSlaForRoom")
}

func (communityExtension) UnsetSlaForRoom(context.Context, string) (*models.Inquiry, error) {
	return nil, apperrors.Unsupported("UnsetSlaForRoom")
}

func (communityExtension) BulkUnsetSla(context.Context, []string) (int64, error) {
	return 0, apperrors.Unsupported("BulkUnsetSla")
}

func (communityExtension) SetPriorityForRoom(context.Context, string, models.Priority) (*models.Inquiry, error) {
	return nil, apperrors.Unsupported("SetPriorityForRoom")
}

func (communityExtension) UnsetPriorityForRoom(context.Context, string) (*models.Inquiry, error) {
	return nil, apperrors.Unsupported("UnsetPriorityForRoom")
}

// slaExtension stores SLA and priority data on the inquiry documents themselves.
type slaExtension struct {
	db *mongo.Database
}

// NewSLAExtension creates the SLA/priority extension backed by the inquiry collection.
func NewSLAExtension(db *mongo.Database) IInquiryExtension {
	return &slaExtension{db: db}
}

func (e *slaExtension) collection() *mongo.Collection {
	return e.db.Collection(inquiriesCollection)
}

// updateByRoom applies update to the inquiry of a room and returns it as updated.
// A room without an inquiry yields nil, nil.
func (e *slaExtension) updateByRoom(ctx context.Context, roomID string, update bson.M) (*models.Inquiry, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var inquiry models.Inquiry
	err := e.collection().FindOneAndUpdate(ctx, bson.M{"rid": roomID}, update, opts).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &inquiry, nil
}

func (e *slaExtension) SetSlaForRoom(ctx context.Context, roomID string, sla models.SlaAssignment) (*models.Inquiry, error) {
	if sla.SlaID == "" {
		return nil, apperrors.NewValidationError("slaId is required")
	}
	inquiry, err := e.updateByRoom(ctx, roomID, bson.M{
		"$set": bson.M{
			"slaId":                     sla.SlaID,
			"estimatedWaitingTimeQueue": sla.EstimatedWaitingTimeQueue,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set SLA for room %s: %w", roomID, err)
	}
	return inquiry, nil
}

func (e *slaExtension) UnsetSlaForRoom(ctx context.Context, roomID string) (*models.Inquiry, error) {
	inquiry, err := e.updateByRoom(ctx, roomID, bson.M{
		"$unset": bson.M{"slaId": 1},
		"$set":   bson.M{"estimatedWaitingTimeQueue": models.DefaultEstimatedWaitingTimeQueue},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unset SLA for room %s: %w", roomID, err)
	}
	return inquiry, nil
}

func (e *slaExtension) BulkUnsetSla(ctx context.Context, roomIDs []string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	result, err := e.collection().UpdateMany(ctx,
		bson.M{"rid": bson.M{"$in": roomIDs}},
		bson.M{
			"$unset": bson.M{"slaId": 1},
			"$set":   bson.M{"estimatedWaitingTimeQueue": models.DefaultEstimatedWaitingTimeQueue},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk unset SLA for %d rooms: %w", len(roomIDs), err)
	}
	return result.ModifiedCount, nil
}

func (e *slaExtension) SetPriorityForRoom(ctx context.Context, roomID string, priority models.Priority) (*models.Inquiry, error) {
	if priority.ID == "" {
		return nil, apperrors.NewValidationError("priority _id is required")
	}
	inquiry, err := e.updateByRoom(ctx, roomID, bson.M{
		"$set": bson.M{
			"priorityId":     priority.ID,
			"priorityWeight": priority.SortItem,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set priority for room %s: %w", roomID, err)
	}
	return inquiry, nil
}

func (e *slaExtension) UnsetPriorityForRoom(ctx context.Context, roomID string) (*models.Inquiry, error) {
	inquiry, err := e.updateByRoom(ctx, roomID, bson.M{
		"$unset": bson.M{"priorityId": 1},
		"$set":   bson.M{"priorityWeight": models.PriorityWeightNotSpecified},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unset priority for room %s: %w", roomID, err)
	}
	return inquiry, nil
}
