package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biztech/api/internal/config"
	"biztech/api/internal/utils"
)

func TestConnectDBUnreachable(t *testing.T) {
	cfg := &config.Config{
		MongoURI:            "mongodb://127.0.0.1:1",
		MongoDbName:         "nowhere",
		MongoConnectTimeout: 500 * time.Millisecond,
	}

	start := time.Now()
	_, _, err := ConnectDB(context.Background(), cfg)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "the configured timeout bounds the dial")
}

func TestConnectDBAndDisconnect(t *testing.T) {
	uri := utils.GetTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set; skipping database-backed test")
	}

	cfg := &config.Config{
		MongoURI:            uri,
		MongoDbName:         "biztech_test_connect",
		MongoConnectTimeout: 10 * time.Second,
	}

	client, database, err := ConnectDB(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "biztech_test_connect", database.Name())
	assert.NoError(t, DisconnectDB(context.Background(), client))
}

func TestDisconnectDBNilClient(t *testing.T) {
	assert.NoError(t, DisconnectDB(context.Background(), nil))
}
