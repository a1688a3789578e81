package database

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the CMS.
const (
	UsersCollectionName    = "users"
	ArticlesCollectionName = "articles"
)

// DB wraps the MongoDB database handle and hands out typed collection
// accessors. It is created once at startup and injected into the
// repositories; connection lifecycle is owned by main.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &DB{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

// Close disconnects the underlying client.
func (db *DB) Close(ctx context.Context) error {
	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// UsersCollection returns the users collection handle.
func (db *DB) UsersCollection() *mongo.Collection {
	return db.database.Collection(UsersCollectionName)
}

// ArticlesCollection returns the articles collection handle.
func (db *DB) ArticlesCollection() *mongo.Collection {
	return db.database.Collection(ArticlesCollectionName)
}

// EnsureIndexes creates the indexes the query layer depends on:
// a unique index on user email, an index on article authorId, a text
// index over article title+content for search, and a descending index
// on article createdAt for list sorting.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.UsersCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}

	articleIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "authorId", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := db.ArticlesCollection().Indexes().CreateMany(ctx, articleIndexes); err != nil {
		return fmt.Errorf("failed to create article indexes: %w", err)
	}

	log.Println("Database indexes ensured")
	return nil
}
