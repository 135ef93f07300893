package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"omnichannel/inquiries/internal/apperrors"
	"omnichannel/inquiries/internal/models"
)

func TestCommunityExtension_FailsFast(t *testing.T) {
	ext := NewCommunityExtension()
	ctx := context.Background()

	calls := map[string]func() error{
		"SetSlaForRoom": func() error {
			_, err := ext.SetSlaForRoom(ctx, "room-1", models.SlaAssignment{SlaID: "s1"})
			return err
		},
		"UnsetSlaForRoom": func() error {
			_, err := ext.UnsetSlaForRoom(ctx, "room-1")
			return err
		},
		"BulkUnsetSla": func() error {
			_, err := ext.BulkUnsetSla(ctx, []string{"room-1"})
			return err
		},
		"SetPriorityForRoom": func() error {
			_, err := ext.SetPriorityForRoom(ctx, "room-1", models.Priority{ID: "p1", SortItem: 1})
			return err
		},
		"UnsetPriorityForRoom": func() error {
			_, err := ext.UnsetPriorityForRoom(ctx, "room-1")
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, apperrors.ErrUnsupportedCapability)
			assert.True(t, apperrors.IsUnsupported(err))
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestNewInquiryService_DefaultsToCommunityExtension(t *testing.T) {
	svc := NewInquiryService(nil)
	_, err := svc.SetPriorityForRoom(context.Background(), "room-1", models.Priority{ID: "p1"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCapability)

	// a nil extension keeps the default
	svc = NewInquiryService(nil, WithExtension(nil))
	_, err = svc.UnsetSlaForRoom(context.Background(), "room-1")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCapability)
}

func TestSLAExtension_ValidatesBeforeStorage(t *testing.T) {
	ext := NewSLAExtension(nil)
	ctx := context.Background()

	_, err := ext.SetSlaForRoom(ctx, "room-1", models.SlaAssignment{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = ext.SetPriorityForRoom(ctx, "room-1", models.Priority{SortItem: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	updated, err := ext.BulkUnsetSla(ctx, nil)
	assert.NoError(t, err)
	assert.Zero(t, updated)
}
