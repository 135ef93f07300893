package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/config"
	"omnichannel/inquiries/internal/models"
)

// ISettingsService is the read side of omnichannel settings plus an admin setter.
// Queue operations never read it themselves; callers pass the values in.
type ISettingsService interface {
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	Get(ctx context.Context, key string) (interface{}, error)
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetStringSlice(ctx context.Context, key string) []string
	GetAllPublic(ctx context.Context) (map[string]interface{}, error)
	SetValue(ctx context.Context, key string, value interface{}, isPublic bool) error

	QueueSortMechanism(ctx context.Context) models.SortMechanism
	DispatchDepartments(ctx context.Context) []string
}

const (
	settingsCollection    = "settings"
	settingsUpdateChannel = "settings_updates"
)

// settingsService implements ISettingsService.
type settingsService struct {
	db     *mongo.Database
	cfg    *config.Config // Defaults loaded from .env
	rdb    *redis.Client
	logger *zap.Logger
	cache  map[string]interface{}
	mutex  sync.RWMutex
}

// NewSettingsService creates a new SettingsService. Call Load before use and
// run SubscribeToChanges in a goroutine to follow updates.
func NewSettingsService(db *mongo.Database, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) ISettingsService {
	return &settingsService{
		db:     db,
		cfg:    cfg,
		rdb:    rdb,
		logger: logger,
		cache:  make(map[string]interface{}),
	}
}

// Load fetches all settings from DB and replaces the in-memory cache.
func (s *settingsService) Load(ctx context.Context) error {
	cursor, err := s.db.Collection(settingsCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query settings collection: %w", err)
	}
	defer cursor.Close(ctx)

	newCache := make(map[string]interface{})
	for cursor.Next(ctx) {
		var entry models.Setting
		if err := cursor.Decode(&entry); err != nil {
			s.logger.Warn("failed to decode setting during load", zap.Error(err))
			continue
		}
		newCache[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating settings cursor: %w", err)
	}

	s.mutex.Lock()
	s.cache = newCache
	s.mutex.Unlock()

	s.logger.Info("settings loaded", zap.Int("count", len(newCache)))
	return nil
}

// Get returns a cached value, falling back to the env defaults for keys
// that have one.
func (s *settingsService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	val, exists := s.cache[key]
	s.mutex.RUnlock()

	if exists && val != nil {
		return val, nil
	}

	switch key {
	case models.SettingSortMechanism:
		return s.cfg.DefaultSortMechanism, nil
	default:
		return nil, fmt.Errorf("setting '%s' not found", key)
	}
}

func (s *settingsService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if strVal, ok := val.(string); ok {
		return strVal
	}
	s.logger.Warn("setting is not a string, using default", zap.String("key", key))
	return defaultValue
}

func (s *settingsService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if boolVal, ok := val.(bool); ok {
		return boolVal
	}
	s.logger.Warn("setting is not a boolean, using default", zap.String("key", key))
	return defaultValue
}

func (s *settingsService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	// MongoDB might store numbers as float64 or int32/64
	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		s.logger.Warn("setting is not an integer, using default", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", val)))
		return defaultValue
	}
}

// GetStringSlice returns nil for missing settings and skips non-string elements.
func (s *settingsService) GetStringSlice(ctx context.Context, key string) []string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return nil
	}
	var items []interface{}
	switch v := val.(type) {
	case []string:
		return v
	case primitive.A:
		items = v
	case []interface{}:
		items = v
	default:
		s.logger.Warn("setting is not a list", zap.String("key", key))
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out
}

// QueueSortMechanism is the configured queue ordering. Unknown values log and
// fall back to timestamp ordering.
func (s *settingsService) QueueSortMechanism(ctx context.Context) models.SortMechanism {
	raw := s.GetString(ctx, models.SettingSortMechanism, string(models.SortByTimestamp))
	mechanism, ok := models.ParseSortMechanism(raw)
	if !ok {
		s.logger.Warn("unknown queue sort mechanism, using Timestamp", zap.String("value", raw))
	}
	return mechanism
}

// DispatchDepartments lists the departments the dispatcher is restricted to.
// Empty means every department with queued inquiries.
func (s *settingsService) DispatchDepartments(ctx context.Context) []string {
	return s.GetStringSlice(ctx, models.SettingDispatchDepartments)
}

// GetAllPublic retrieves all settings marked as public from DB.
func (s *settingsService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	publicSettings := map[string]interface{}{}
	cursor, err := s.db.Collection(settingsCollection).Find(ctx, bson.M{"public": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query public settings from DB: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var entry models.Setting
		if err := cursor.Decode(&entry); err != nil {
			s.logger.Warn("failed to decode public setting", zap.Error(err))
			continue
		}
		publicSettings[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating public settings cursor: %w", err)
	}
	return publicSettings, nil
}

// SubscribeToChanges reloads the cache on every message published to the
// settings channel. It returns when ctx is done or the subscription closes.
func (s *settingsService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		s.logger.Info("redis client not configured, settings changes will not be followed")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, settingsUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to receive confirmation from Redis Pub/Sub subscription: %w", err)
	}

	ch := pubsub.Channel()
	s.logger.Info("subscribed to settings updates", zap.String("channel", settingsUpdateChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				s.logger.Info("settings Pub/Sub listener stopped")
				return nil
			}
			s.logger.Info("settings update received", zap.String("key", msg.Payload))
			if err := s.Load(ctx); err != nil {
				s.logger.Error("failed to reload settings after notification", zap.Error(err))
			}
		}
	}
}

// SetValue upserts a setting and notifies every instance to reload.
func (s *settingsService) SetValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	filter := bson.M{"key": key}
	update := bson.M{
		"$set": bson.M{
			"key":    key,
			"value":  value,
			"public": isPublic,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := s.db.Collection(settingsCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert setting '%s' in DB: %w", key, err)
	}

	s.mutex.Lock()
	s.cache[key] = value
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, settingsUpdateChannel, key).Err(); err != nil {
			s.logger.Warn("failed to publish settings update", zap.String("key", key), zap.Error(err))
		}
	}

	s.logger.Info("setting updated", zap.String("key", key))
	return nil
}
