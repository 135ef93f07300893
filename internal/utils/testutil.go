package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	testMongoURI string
	testRedisURL string
)

func init() {
	loadTestEnv()
}

// loadTestEnv loads the .env file and picks up the test connection strings
func loadTestEnv() {
	// Get current file path
	_, filename, _, _ := runtime.Caller(0)
	// Try to load .env from project root (2 levels up from this file)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		// Try current directory as fallback
		godotenv.Load()
	}

	testMongoURI = os.Getenv("MONGO_URI_TEST")
	testRedisURL = os.Getenv("REDIS_ADDR_TEST")
}

// SetupTestDB connects to the test MongoDB and returns a database with the
// given collections dropped. The test is skipped when MONGO_URI_TEST is unset.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	if testMongoURI == "" {
		t.Skip("MONGO_URI_TEST not set, skipping MongoDB test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testMongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")
	require.NoError(t, client.Ping(ctx, nil), "Failed to ping MongoDB")

	db := client.Database(dbName)
	for _, collection := range collections {
		_ = db.Collection(collection).Drop(ctx)
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

// SetupTestRedis returns a flushed client for REDIS_ADDR_TEST, or skips.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testRedisURL == "" {
		t.Skip("REDIS_ADDR_TEST not set, skipping Redis test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: testRedisURL})
	require.NoError(t, rdb.FlushDB(context.Background()).Err(), "Failed to flush Redis")
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// GetTestMongoURI returns the test MongoDB URI for direct use if needed
func GetTestMongoURI() string {
	if testMongoURI == "" {
		loadTestEnv()
	}
	return testMongoURI
}
