package mongodb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

type Client struct {
	Client   *mongo.Client
	Database string
	log      *logger.Logger
}

// NewFromEnv dials MongoDB using MONGO_URI / MONGO_DATABASE. A missing
// MONGO_URI returns (nil, nil) so the caller can select the relational
// document-store backend instead.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("mongodb: logger required")
	}

	uri := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if uri == "" {
		return nil, nil
	}
	database := envutil.String("MONGO_DATABASE", "bioterms")
	timeout := envutil.Duration("MONGO_TIMEOUT", 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	return &Client{
		Client:   client,
		Database: database,
		log:      log.With("client", "MongoDB"),
	}, nil
}

// DB returns the configured database handle.
func (c *Client) DB() *mongo.Database {
	return c.Client.Database(c.Database)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Client.Disconnect(ctx)
	c.Client = nil
	return err
}
