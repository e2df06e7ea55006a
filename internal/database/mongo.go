package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bklreg/entity"
	"bklreg/internal/config"
	"bklreg/lib/regnum"
)

const (
	collectionRegistrations = "registrations"
	collectionSessions      = "admin_sessions"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

// SaveRegistration appends one record. Creation time and the registration
// number are assigned here, at write time, and never change afterwards.
// A single InsertOne keeps the append atomic per record.
func (m *MongoDB) SaveRegistration(ctx context.Context, reg *entity.Registration) (string, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return "", &entity.StoreError{Op: "append", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	reg.CreatedAt = time.Now().UTC()
	reg.RegistrationNumber = regnum.Generate(reg.CreatedAt)
	if reg.Status == "" {
		reg.Status = entity.StatusRegistered
	}

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	res, err := collection.InsertOne(ctx, reg)
	if err != nil {
		return "", &entity.StoreError{Op: "append", Reason: err}
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", &entity.StoreError{Op: "append", Reason: fmt.Errorf("unexpected inserted id %T", res.InsertedID)}
	}
	reg.StorageKey = oid.Hex()
	return reg.StorageKey, nil
}

// GetRegistrations returns every stored record, newest first.
func (m *MongoDB) GetRegistrations(ctx context.Context) ([]entity.Registration, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, &entity.StoreError{Op: "list", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, &entity.StoreError{Op: "list", Reason: err}
	}
	defer cursor.Close(ctx)

	var regs []entity.Registration
	for cursor.Next(ctx) {
		var row struct {
			Id                  primitive.ObjectID  `bson:"_id"`
			entity.Registration `bson:",inline"`
		}
		if err = cursor.Decode(&row); err != nil {
			return nil, &entity.StoreError{Op: "list", Reason: err}
		}
		row.Registration.StorageKey = row.Id.Hex()
		regs = append(regs, row.Registration)
	}
	if err = cursor.Err(); err != nil {
		return nil, &entity.StoreError{Op: "list", Reason: err}
	}
	return regs, nil
}

// SetRegistrationStatus applies a partial mutation; status is the only
// field this system ever updates.
func (m *MongoDB) SetRegistrationStatus(ctx context.Context, key string, status entity.Status) error {
	oid, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return &entity.StoreError{Op: "update", Reason: err}
	}
	connection, err := m.connect(ctx)
	if err != nil {
		return &entity.StoreError{Op: "update", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	filter := bson.D{{Key: "_id", Value: oid}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return &entity.StoreError{Op: "update", Reason: err}
	}
	if res.MatchedCount == 0 {
		return &entity.StoreError{Op: "update", Reason: mongo.ErrNoDocuments}
	}
	return nil
}

// DeleteRegistration permanently removes a record. No tombstone, no undo.
func (m *MongoDB) DeleteRegistration(ctx context.Context, key string) error {
	oid, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return &entity.StoreError{Op: "remove", Reason: err}
	}
	connection, err := m.connect(ctx)
	if err != nil {
		return &entity.StoreError{Op: "remove", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	res, err := collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return &entity.StoreError{Op: "remove", Reason: err}
	}
	if res.DeletedCount == 0 {
		return &entity.StoreError{Op: "remove", Reason: mongo.ErrNoDocuments}
	}
	return nil
}

// Session markers back the admin gate; a present marker means the session
// survives a restart, there is no expiry.

func (m *MongoDB) PutSession(ctx context.Context, token string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return &entity.StoreError{Op: "session put", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionSessions)
	filter := bson.D{{Key: "token", Value: token}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "token", Value: token},
		{Key: "created_at", Value: time.Now().UTC()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return &entity.StoreError{Op: "session put", Reason: err}
	}
	return nil
}

func (m *MongoDB) HasSession(ctx context.Context, token string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, &entity.StoreError{Op: "session get", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionSessions)
	err = collection.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, &entity.StoreError{Op: "session get", Reason: err}
	}
	return true, nil
}

func (m *MongoDB) DeleteSession(ctx context.Context, token string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return &entity.StoreError{Op: "session delete", Reason: err}
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionSessions)
	_, err = collection.DeleteOne(ctx, bson.D{{Key: "token", Value: token}})
	if err != nil {
		return &entity.StoreError{Op: "session delete", Reason: err}
	}
	return nil
}
