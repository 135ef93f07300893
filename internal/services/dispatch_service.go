package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"omnichannel/inquiries/internal/db"
	"omnichannel/inquiries/internal/models"
)

// DispatchOutcome says what a single dispatch attempt did.
type DispatchOutcome string

const (
	// DispatchOutcomeEmpty means nothing in the queue was claimable.
	DispatchOutcomeEmpty DispatchOutcome = "empty"
	// DispatchOutcomeNoAgent means an inquiry was claimed but released again
	// because no agent could take it.
	DispatchOutcomeNoAgent DispatchOutcome = "no_agent"
	DispatchOutcomeTaken   DispatchOutcome = "taken"
)

type DispatchResult struct {
	Inquiry *models.Inquiry `json:"inquiry,omitempty"`
	AgentID string          `json:"agentId,omitempty"`
	Outcome DispatchOutcome `json:"outcome"`
}

// IDispatchService routes queued inquiries to agents one claim at a time.
type IDispatchService interface {
	DispatchNext(ctx context.Context, department string) (*DispatchResult, error)
}

type dispatchService struct {
	inquiries  IInquiryService
	settings   ISettingsService
	agents     IAgentAvailabilityService
	maxRetries int
	logger     *zap.Logger
}

// NewDispatchService creates a DispatchService. maxRetries bounds the retries
// of a claim that failed with a transient store error.
func NewDispatchService(inquiries IInquiryService, settings ISettingsService, agents IAgentAvailabilityService, maxRetries int, logger *zap.Logger) IDispatchService {
	return &dispatchService{
		inquiries:  inquiries,
		settings:   settings,
		agents:     agents,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// DispatchNext claims the next inquiry of the department and hands it to its
// default agent when that agent is in the department's pool, or to a random
// available one. A default agent found offline is cleared from the inquiry.
// Without an agent the claim is released immediately so another worker can retry.
func (s *dispatchService) DispatchNext(ctx context.Context, department string) (*DispatchResult, error) {
	sortBy := s.settings.QueueSortMechanism(ctx)

	var inquiry *models.Inquiry
	err := db.WithRetries(func() error {
		var claimErr error
		inquiry, claimErr = s.inquiries.FindNextAndLock(ctx, sortBy, department)
		return claimErr
	}, s.maxRetries, db.IsTransientError)
	if err != nil {
		return nil, fmt.Errorf("dispatch claim failed: %w", err)
	}
	if inquiry == nil {
		return &DispatchResult{Outcome: DispatchOutcomeEmpty}, nil
	}

	log := s.logger.With(zap.String("inquiry_id", inquiry.ID), zap.String("department", department))

	agentID, err := s.chooseAgent(ctx, inquiry, department, log)
	if err != nil {
		s.release(ctx, inquiry.ID, log)
		return nil, err
	}

	if agentID == "" {
		s.release(ctx, inquiry.ID, log)
		log.Debug("no agent available, inquiry released")
		return &DispatchResult{Inquiry: inquiry, Outcome: DispatchOutcomeNoAgent}, nil
	}

	taken, err := s.inquiries.TakeInquiry(ctx, inquiry.ID)
	if err != nil {
		s.release(ctx, inquiry.ID, log)
		return nil, err
	}
	if !taken {
		// removed between claim and take
		log.Warn("claimed inquiry vanished before it could be taken")
		return &DispatchResult{Outcome: DispatchOutcomeEmpty}, nil
	}

	log.Info("inquiry dispatched", zap.String("agent_id", agentID))
	return &DispatchResult{Inquiry: takenCopy(inquiry), AgentID: agentID, Outcome: DispatchOutcomeTaken}, nil
}

func (s *dispatchService) chooseAgent(ctx context.Context, inquiry *models.Inquiry, department string, log *zap.Logger) (string, error) {
	if inquiry.DefaultAgent != nil {
		defaultAgentID := inquiry.DefaultAgent.AgentID
		available, err := s.agents.IsAvailable(ctx, defaultAgentID, department)
		if err != nil {
			return "", err
		}
		if available {
			return defaultAgentID, nil
		}

		log.Info("default agent unavailable, falling back to pool", zap.String("agent_id", defaultAgentID))
		if _, err := s.inquiries.RemoveDefaultAgentByID(ctx, inquiry.ID); err != nil {
			log.Warn("failed to clear default agent", zap.Error(err))
		} else {
			inquiry.DefaultAgent = nil
		}
	}
	return s.agents.PickAgent(ctx, department)
}

// takenCopy mirrors the write TakeInquiry applied to the stored row.
func takenCopy(inquiry *models.Inquiry) *models.Inquiry {
	taken := *inquiry
	now := time.Now().UTC()
	taken.Status = models.InquiryStatusTaken
	taken.TakenAt = &now
	taken.Locked = false
	taken.LockedAt = nil
	taken.DefaultAgent = nil
	taken.EstimatedInactivityCloseTimeAt = nil
	return &taken
}

func (s *dispatchService) release(ctx context.Context, inquiryID string, log *zap.Logger) {
	if _, err := s.inquiries.Unlock(ctx, inquiryID); err != nil {
		// the lease lapses on its own after InquiryLockTTL
		log.Warn("failed to release inquiry lease", zap.Error(err))
	}
}
