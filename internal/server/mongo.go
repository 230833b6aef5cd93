package server

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/treescope/pkg/errors"
)

// scansCollection is the Mongo collection holding scan records.
const scansCollection = "scans"

// MongoStore persists scan records in MongoDB for multi-instance
// deployments, where any server instance can serve layouts for a scan
// taken by another.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, db string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "connect %s", uri)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "ping %s", uri)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(db).Collection(scansCollection),
	}, nil
}

// Put stores or replaces a record.
func (s *MongoStore) Put(ctx context.Context, rec *ScanRecord) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "store scan %s", rec.ID)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*ScanRecord, error) {
	var rec ScanRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeScanNotFound, "scan %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "load scan %s", id)
	}
	return &rec, nil
}

// List returns all records, newest first, without tree payloads.
func (s *MongoStore) List(ctx context.Context) ([]*ScanRecord, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetProjection(bson.M{"tree": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "list scans")
	}
	defer cur.Close(ctx)

	var out []*ScanRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "decode scans")
	}
	return out, nil
}

// Delete removes a record.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "delete scan %s", id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements ScanStore.
var _ ScanStore = (*MongoStore)(nil)
