// Package mongodb implements docstore.Store over MongoDB. Each store collection
// maps to one Mongo collection; the document id is stored as _id.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/core/id"
)

const fieldMongoID = "_id"

// Store implements docstore.Store.
type Store struct {
	docstore.Notifier

	client  *mongo.Client
	db      *mongo.Database
	matcher *docstore.Matcher
}

var _ docstore.Store = (*Store)(nil)

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{
		client:  client,
		db:      client.Database(dbName),
		matcher: docstore.MustMatcher(),
	}, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// List implements docstore.Store. UUIDv7 ids sort in insertion order.
func (s *Store) List(ctx context.Context, name string, filter docstore.Filter) ([]docstore.Document, error) {
	eq, err := filter.NormalizedEq()
	if err != nil {
		return nil, apperror.NewValidation("invalid filter").WithCause(err)
	}
	query := bson.M{}
	for k, v := range eq {
		if k == docstore.FieldID {
			k = fieldMongoID
		}
		query[k] = v
	}

	cur, err := s.db.Collection(name).Find(ctx, query, options.Find().SetSort(bson.D{{Key: fieldMongoID, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}

	docs := make([]docstore.Document, 0, len(raw))
	for _, m := range raw {
		doc, err := fromBSON(m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return s.matcher.Apply(docs, filter.Expr)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, name, docID string) (docstore.Document, error) {
	var m bson.M
	err := s.db.Collection(name).FindOne(ctx, bson.M{fieldMongoID: docID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound(name, docID)
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return fromBSON(m)
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	docID := id.New()
	delete(stored, docstore.FieldID)

	m := bson.M(stored.Clone())
	m[fieldMongoID] = docID
	if _, err := s.db.Collection(name).InsertOne(ctx, m); err != nil {
		return nil, fmt.Errorf("insert %s: %w", name, err)
	}

	stored[docstore.FieldID] = docID
	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeInsert, ID: docID})
	return stored, nil
}

// Update implements docstore.Store with a $set of the given fields.
func (s *Store) Update(ctx context.Context, name, docID string, fields docstore.Document) (docstore.Document, error) {
	patch, err := docstore.Normalize(fields)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	delete(patch, docstore.FieldID)
	if len(patch) == 0 {
		return s.Get(ctx, name, docID)
	}

	var m bson.M
	err = s.db.Collection(name).FindOneAndUpdate(ctx,
		bson.M{fieldMongoID: docID},
		bson.M{"$set": bson.M(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound(name, docID)
		}
		return nil, fmt.Errorf("update %s: %w", name, err)
	}

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeUpdate, ID: docID})
	return fromBSON(m)
}

// Remove implements docstore.Store.
func (s *Store) Remove(ctx context.Context, name, docID string) error {
	res, err := s.db.Collection(name).DeleteOne(ctx, bson.M{fieldMongoID: docID})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NewNotFound(name, docID)
	}

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeRemove, ID: docID})
	return nil
}

// fromBSON converts a decoded Mongo document back to JSON primitives.
func fromBSON(m bson.M) (docstore.Document, error) {
	docID, _ := m[fieldMongoID].(string)
	delete(m, fieldMongoID)

	doc, err := docstore.Normalize(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", docID, err)
	}
	doc[docstore.FieldID] = docID
	return doc, nil
}
