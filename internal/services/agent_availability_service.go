package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IAgentAvailabilityService tracks which agents may receive dispatched inquiries.
type IAgentAvailabilityService interface {
	SetAvailable(ctx context.Context, agentID string, departments []string) error
	SetUnavailable(ctx context.Context, agentID string, departments []string) error
	PickAgent(ctx context.Context, department string) (string, error)
	IsAvailable(ctx context.Context, agentID, department string) (bool, error)
	AvailableAgents(ctx context.Context, department string) ([]string, error)
}

const (
	availableAgentsKeyPrefix = "livechat:agents:available:"
	// undepartmentedKey names the pool serving inquiries without a department.
	undepartmentedKey = "_"
)

func availableAgentsKey(department string) string {
	if department == "" {
		department = undepartmentedKey
	}
	return availableAgentsKeyPrefix + department
}

// poolKeys maps departments to their Redis sets. No departments means the
// undepartmented pool.
func poolKeys(departments []string) []string {
	if len(departments) == 0 {
		return []string{availableAgentsKey("")}
	}
	keys := make([]string, 0, len(departments))
	for _, dept := range departments {
		keys = append(keys, availableAgentsKey(dept))
	}
	return keys
}

type agentAvailabilityService struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAgentAvailabilityService creates the Redis-backed agent pool.
func NewAgentAvailabilityService(rdb *redis.Client, logger *zap.Logger) IAgentAvailabilityService {
	return &agentAvailabilityService{rdb: rdb, logger: logger}
}

func (s *agentAvailabilityService) SetAvailable(ctx context.Context, agentID string, departments []string) error {
	for _, key := range poolKeys(departments) {
		if err := s.rdb.SAdd(ctx, key, agentID).Err(); err != nil {
			return fmt.Errorf("failed to add agent %s to %s: %w", agentID, key, err)
		}
	}
	s.logger.Debug("agent available", zap.String("agent_id", agentID), zap.Strings("departments", departments))
	return nil
}

func (s *agentAvailabilityService) SetUnavailable(ctx context.Context, agentID string, departments []string) error {
	for _, key := range poolKeys(departments) {
		if err := s.rdb.SRem(ctx, key, agentID).Err(); err != nil {
			return fmt.Errorf("failed to remove agent %s from %s: %w", agentID, key, err)
		}
	}
	s.logger.Debug("agent unavailable", zap.String("agent_id", agentID), zap.Strings("departments", departments))
	return nil
}

// PickAgent returns a random available agent of the department, or "" when
// the pool is empty.
func (s *agentAvailabilityService) PickAgent(ctx context.Context, department string) (string, error) {
	agentID, err := s.rdb.SRandMember(ctx, availableAgentsKey(department)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to pick agent for department %q: %w", department, err)
	}
	return agentID, nil
}

// IsAvailable reports whether the agent is in the department's pool.
func (s *agentAvailabilityService) IsAvailable(ctx context.Context, agentID, department string) (bool, error) {
	member, err := s.rdb.SIsMember(ctx, availableAgentsKey(department), agentID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check agent %s in department %q: %w", agentID, department, err)
	}
	return member, nil
}

func (s *agentAvailabilityService) AvailableAgents(ctx context.Context, department string) ([]string, error) {
	agents, err := s.rdb.SMembers(ctx, availableAgentsKey(department)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list agents for department %q: %w", department, err)
	}
	return agents, nil
}
