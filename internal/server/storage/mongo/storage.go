// Package mongo реализует хранилище пользователей поверх MongoDB.
// Ротация токенов опирается на атомарность обновления одного документа.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// Storage represents MongoDB storage implementation
type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New creates a new MongoDB storage instance
// uri is the connection string, database is the database name
func New(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Проверяем соединение
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	storage := &Storage{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
	}

	// Уникальность email и username обеспечивается индексами
	if err := storage.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return storage, nil
}

// Close disconnects from MongoDB
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes создает уникальные индексы на email и username
func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
