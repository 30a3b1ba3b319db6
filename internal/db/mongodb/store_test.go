package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewStoreWarnsWithoutTransactions(t *testing.T) {
	// Connect is lazy, no server is needed until the first operation
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	tests := []struct {
		name         string
		transactions bool
		warnings     int
	}{
		{name: "transactions enabled", transactions: true, warnings: 0},
		{name: "transactions disabled", transactions: false, warnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			s := NewStore(client, "turn_engine_test", tt.transactions, zap.New(core).Sugar())

			assert.Equal(t, "turn_engine_test", s.Database().Name())
			assert.Equal(t, tt.warnings, logs.FilterMessageSnippet("transactions are disabled").Len())
		})
	}
}
