// internal/output/mongo.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/valpere/FormScrapexter/internal/scraper"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// DefaultMongoTimeout bounds connecting and each Save
const DefaultMongoTimeout = 30 * time.Second

type mongoField struct {
	Type     string `bson:"type"`
	XPath    string `bson:"xpath"`
	Required bool   `bson:"required"`
}

type mongoAdditional struct {
	Name     string `bson:"name"`
	XPath    string `bson:"xpath"`
	Type     string `bson:"type"`
	Required bool   `bson:"required"`
}

type mongoDocument struct {
	URL              string                `bson:"url"`
	Domain           string                `bson:"domain"`
	HasCaptcha       bool                  `bson:"has_captcha"`
	HasAdditional    bool                  `bson:"has_additional_fields"`
	Error            string                `bson:"error"`
	Fields           map[string]mongoField `bson:"fields"`
	AdditionalFields []mongoAdditional     `bson:"additional_fields"`
	ScrapedAt        time.Time             `bson:"scraped_at"`
}

func newMongoDocument(r *scraper.PageResult, now time.Time) mongoDocument {
	doc := mongoDocument{
		URL:              r.URL,
		Domain:           r.Domain,
		HasCaptcha:       r.HasCaptcha,
		HasAdditional:    r.HasAdditionalFields(),
		Error:            r.Error,
		Fields:           make(map[string]mongoField),
		AdditionalFields: make([]mongoAdditional, 0, len(r.AdditionalFields)),
		ScrapedAt:        now,
	}
	for _, f := range scraper.Fields() {
		m := r.Fields[f]
		if !m.Found {
			continue
		}
		doc.Fields[f.String()] = mongoField{Type: m.Type, XPath: m.XPath, Required: m.Required}
	}
	for _, a := range r.AdditionalFields {
		doc.AdditionalFields = append(doc.AdditionalFields, mongoAdditional(a))
	}
	return doc
}

// MongoStore upserts one document per URL
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore connects to uri and ensures a unique url index
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if collection == "" {
		collection = DefaultConfig().Collection
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultMongoTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to ping MongoDB")
	}

	coll := client.Database(database).Collection(collection)
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("url_unique"),
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		client.Disconnect(context.Background())
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to create MongoDB index")
	}

	return &MongoStore{client: client, collection: coll, timeout: DefaultMongoTimeout}, nil
}

// Save replaces or inserts the document of every result
func (s *MongoStore) Save(ctx context.Context, results []*scraper.PageResult) error {
	if len(results) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(results))
	for _, r := range results {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"url": r.URL}).
			SetReplacement(newMongoDocument(r, now)).
			SetUpsert(true))
	}

	if _, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to write MongoDB documents")
	}
	return nil
}

// Ping verifies the server connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
