package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

// MongoStore persists appointments in MongoDB. A unique index restricted by
// partialFilterExpression {status: "approved"} enforces one approved
// appointment per slot; single-document updates keep each write atomic.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, coll: client.Database(database).Collection("appointments")}
}

// EnsureIndexes creates the collection indexes. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetName(approvedSlotIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(model.StatusApproved)}),
		},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return mongoError("ensure appointment indexes", err)
}

func (s *MongoStore) Create(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if _, err := s.coll.InsertOne(ctx, a); err != nil {
		return model.Appointment{}, mongoError("create appointment", err)
	}
	return a, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return model.Appointment{}, mongoError("get appointment", err)
	}
	return normalizeTimes(a), nil
}

func (s *MongoStore) List(ctx context.Context, f model.Filter) ([]model.Appointment, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Date != "" {
		filter["date"] = f.Date
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "time", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoError("list appointments", err)
	}
	defer cur.Close(ctx)

	var out []model.Appointment
	for cur.Next(ctx) {
		var a model.Appointment
		if err := cur.Decode(&a); err != nil {
			return nil, mongoError("list appointments", err)
		}
		out = append(out, normalizeTimes(a))
	}
	if err := cur.Err(); err != nil {
		return nil, mongoError("list appointments", err)
	}
	return out, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, p model.Patch, now time.Time) (model.Appointment, model.Appointment, error) {
	set := bson.M{"updatedAt": now}
	if p.CustomerName != nil {
		set["name"] = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		set["email"] = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		set["phone"] = *p.CustomerPhone
	}
	if p.Service != nil {
		set["serviceType"] = string(*p.Service)
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	if p.Time != nil {
		set["time"] = *p.Time
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}

	var before model.Appointment
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return model.Appointment{}, model.Appointment{}, mongoError("update appointment", err)
	}
	before = normalizeTimes(before)
	after := p.Apply(before)
	after.UpdatedAt = now.UTC().Truncate(time.Millisecond)
	return before, after, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return model.Appointment{}, mongoError("delete appointment", err)
	}
	return normalizeTimes(a), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// BSON datetimes carry milliseconds and decode as UTC.
func normalizeTimes(a model.Appointment) model.Appointment {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}

// MongoAdminStore persists admin accounts in MongoDB.
type MongoAdminStore struct {
	coll *mongo.Collection
}

func NewMongoAdminStore(client *mongo.Client, database string) *MongoAdminStore {
	return &MongoAdminStore{coll: client.Database(database).Collection("admins")}
}

func (s *MongoAdminStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName(adminEmailIndex).SetUnique(true),
	})
	return mongoError("ensure admin indexes", err)
}

func (s *MongoAdminStore) CreateAdmin(ctx context.Context, a model.Admin) error {
	_, err := s.coll.InsertOne(ctx, a)
	return mongoError("create admin", err)
}

func (s *MongoAdminStore) AdminByEmail(ctx context.Context, email string) (model.Admin, error) {
	return s.findOne(ctx, "admin by email", bson.M{"email": email})
}

func (s *MongoAdminStore) AdminByID(ctx context.Context, id string) (model.Admin, error) {
	return s.findOne(ctx, "admin by id", bson.M{"_id": id})
}

func (s *MongoAdminStore) findOne(ctx context.Context, op string, filter bson.M) (model.Admin, error) {
	var a model.Admin
	err := s.coll.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Admin{}, model.ErrAdminNotFound
	}
	if err != nil {
		return model.Admin{}, mongoError(op, err)
	}
	return a, nil
}
