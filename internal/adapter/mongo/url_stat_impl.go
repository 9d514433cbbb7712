// Package mongo stores cleaning results in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
	"github.com/user/urlcleaner/pkg/utils"
)

// Config selects the deployment and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// urlStatDoc is the stored shape of one record.
type urlStatDoc struct {
	RunID          string    `bson:"run_id"`
	URLKey         string    `bson:"url_key"`
	URL            string    `bson:"url"`
	Status         string    `bson:"status"`
	LocalCleanURL  string    `bson:"local_clean_url,omitempty"`
	RemoteCleanURL string    `bson:"remote_clean_url,omitempty"`
	HTTPCode       int       `bson:"http_code,omitempty"`
	Exception      string    `bson:"exception,omitempty"`
	Attempts       int       `bson:"attempts"`
	CleanedAt      time.Time `bson:"cleaned_at"`
}

// URLStatRepoImpl is a sink that inserts one document per record. Documents
// carry utils.RecordKey as url_key so that duplicate lines of a run can be
// grouped without being merged.
type URLStatRepoImpl struct {
	client *mongo.Client
	coll   *mongo.Collection
	runID  string
}

var _ repository.SinkRepository = (*URLStatRepoImpl)(nil)

// Connect dials MongoDB, checks it with a ping and makes sure the
// (run_id, status) and url_key indexes exist.
func Connect(ctx context.Context, cfg Config, runID string) (*URLStatRepoImpl, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "url_key", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't create url_stats index: %w", err)
	}

	return &URLStatRepoImpl{client: client, coll: coll, runID: runID}, nil
}

func (r *URLStatRepoImpl) Save(ctx context.Context, stat *entity.URLStat) error {
	doc := toDoc(r.runID, stat, time.Now().UTC())
	_, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save url stat for %s: %w", stat.URL, err)
	}
	return nil
}

func (r *URLStatRepoImpl) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toDoc(runID string, stat *entity.URLStat, now time.Time) urlStatDoc {
	return urlStatDoc{
		RunID:          runID,
		URLKey:         utils.RecordKey(runID, stat.URL),
		URL:            stat.URL,
		Status:         string(stat.Status),
		LocalCleanURL:  stat.LocalCleanURL,
		RemoteCleanURL: stat.RemoteCleanURL,
		HTTPCode:       stat.HTTPCode,
		Exception:      stat.Exception(),
		Attempts:       stat.Attempts,
		CleanedAt:      now,
	}
}
