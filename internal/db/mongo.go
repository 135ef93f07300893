package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/config"
)

const disconnectTimeout = 10 * time.Second

// ClientOptions builds the driver options for the inquiry store. Claims are
// single-document writes, so retryable writes stay on under WithRetries.
func ClientOptions(cfg *config.Config) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(cfg.AppName).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetRetryWrites(true)
}

// ConnectDB connects to MongoDB and pings the primary.
func ConnectDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	clientOptions := ClientOptions(cfg)
	if err := clientOptions.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid MongoDB options: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to reach MongoDB primary: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", cfg.MongoDbName),
		zap.String("app_name", cfg.AppName))
	return client, client.Database(cfg.MongoDbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client, logger *zap.Logger) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	logger.Info("MongoDB connection closed")
	return nil
}
