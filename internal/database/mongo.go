package database

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo はMongoDBのクライアントと使用するデータベースです。
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// OpenMongo はMongoDBに接続し、todos / users のインデックスを作成します。
func OpenMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{Client: client, DB: client.Database(dbName)}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("Successfully connected to database", "driver", "mongo", "database", dbName)
	return m, nil
}

// EnsureIndexes は一覧取得用とユーザー一意制約用のインデックスを作成します。
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.DB.Collection("todos").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create todos index: %w", err)
	}
	_, err = m.DB.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	return nil
}

// Ping はプライマリへの接続を確認します。
func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close はクライアントを切断します。
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
