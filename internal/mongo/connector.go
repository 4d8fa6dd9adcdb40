package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/utils"
)

// ConnectOptions defines MongoDB connection settings and startup retry behavior.
type ConnectOptions struct {
	URI           string        // ex: "mongodb://localhost:27017"
	SelectTimeout time.Duration // server selection timeout per operation
	MaxPoolSize   uint64        // 0 keeps the driver default

	Retry utils.RetryPolicy
}

// New creates a MongoDB client and blocks until the primary answers a ping
// or the retry policy gives up. The client is disconnected on failure.
func New(opts ConnectOptions, log logger.Logger) (*mongo.Client, error) {
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.SelectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.SelectTimeout)
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo uri: %w", err)
	}

	// Connect does not dial; the ping loop below does.
	client, err := mongo.Connect(context.Background(), clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if err := utils.WaitFor("mongo", strings.Join(clientOpts.Hosts, ","), opts.Retry, ping, log); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
