package source

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/neighborly/moderation/internal/domain"
)

// MongoReader reads one document-oriented source page by page using find
// with an explicit sort on the descriptor's id field plus skip/limit, so a
// retried fetch sees the same rows.
type MongoReader struct {
	db     *mongo.Database
	coll   *mongo.Collection
	desc   Descriptor
	logger Logger
}

// NewMongoReader creates a reader over the given document source.
func NewMongoReader(db *mongo.Database, desc Descriptor, logger Logger) (*MongoReader, error) {
	if desc.Store != StoreMongo {
		return nil, fmt.Errorf("source %s: not a mongo source", desc.Name)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	return &MongoReader{
		db:     db,
		coll:   db.Collection(desc.Table),
		desc:   desc,
		logger: logger,
	}, nil
}

// Descriptor returns the source descriptor this reader serves.
func (r *MongoReader) Descriptor() Descriptor {
	return r.desc
}

// ReadPage fetches up to limit documents starting at offset.
func (r *MongoReader) ReadPage(ctx context.Context, offset, limit int) ([]domain.ContentUnit, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: r.desc.IDField, Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.desc.Table, err)
	}
	defer cursor.Close(ctx)

	var units []domain.ContentUnit
	for cursor.Next(ctx) {
		var doc bson.M
		if decodeErr := cursor.Decode(&doc); decodeErr != nil {
			return nil, fmt.Errorf("decode %s document: %w", r.desc.Table, decodeErr)
		}
		units = append(units, r.mapDocument(ctx, doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s cursor: %w", r.desc.Table, err)
	}

	return units, nil
}

// mapDocument converts one document to a content unit, resolving the
// optional identity lookup.
func (r *MongoReader) mapDocument(ctx context.Context, doc bson.M) domain.ContentUnit {
	identity := make(domain.Identity, len(r.desc.Identity))
	for _, f := range r.desc.Identity {
		identity[f.Name] = mongoFieldValue(doc[f.Column])
	}

	unit := domain.ContentUnit{
		Source:   r.desc.Name,
		Category: r.desc.Category,
		Identity: identity,
		Text:     docText(doc, r.desc.ContentField),
	}
	if r.desc.UsernameField != "" {
		unit.SecondaryText = docText(doc, r.desc.UsernameField)
		unit.SecondaryLabel = r.desc.UsernameField
	}
	if r.desc.GroupField != "" {
		unit.Group = mongoFieldValue(doc[r.desc.GroupField])
	}

	if r.desc.Lookup != nil && unit.SecondaryText != "" {
		if v, ok := r.resolveLookup(ctx, unit.SecondaryText); ok {
			identity[r.desc.Lookup.IdentityField] = v
		}
	}

	return unit
}

// resolveLookup matches the given value against the lookup collection and
// returns the matched document's id. Failure to resolve leaves the identity
// field absent; it is never an error.
func (r *MongoReader) resolveLookup(ctx context.Context, match string) (domain.FieldValue, bool) {
	lookup := r.desc.Lookup

	var result bson.M
	err := r.db.Collection(lookup.Collection).
		FindOne(ctx, bson.M{lookup.MatchField: match}).
		Decode(&result)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Warn("Identity lookup failed",
				"source", r.desc.Name,
				"collection", lookup.Collection,
				"error", err,
			)
		}
		return domain.AbsentValue(), false
	}

	return mongoFieldValue(result["_id"]), true
}

// mongoFieldValue converts a BSON value to a FieldValue, rendering object
// ids as hex strings.
func mongoFieldValue(v any) domain.FieldValue {
	if oid, ok := v.(primitive.ObjectID); ok {
		return domain.StringValue(oid.Hex())
	}
	return domain.FieldValueOf(v)
}

// docText returns the text value of a document field; missing or null
// fields are treated as empty text.
func docText(doc bson.M, field string) string {
	switch v := doc[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
