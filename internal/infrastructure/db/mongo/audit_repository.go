package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

const auditCollection = "session_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

type sessionEventDoc struct {
	BrowserID   string    `bson:"browser_id"`
	Kind        string    `bson:"kind"`
	Username    string    `bson:"username,omitempty"`
	Role        string    `bson:"role,omitempty"`
	Detail      string    `bson:"detail,omitempty"`
	At          time.Time `bson:"at"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// InsertEvent appends one entry to the session audit trail.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.SessionEvent) error {
	doc := sessionEventDoc{
		BrowserID:   event.BrowserID,
		Kind:        string(event.Kind),
		Username:    event.Username,
		Role:        event.Role,
		Detail:      event.Detail,
		At:          event.At.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes used to read a browser's or a user's trail.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "browser_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
