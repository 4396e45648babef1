// Package docstore is the document store layer over MongoDB: whole-artifact
// persistence with an automatic split for oversized documents, page and text
// lookup for the browse surface, and the duplicate registry the dedup stage
// drives.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PadsterH2012/extractor/internal/types"
)

const (
	// DatabaseName is the fixed database all collections live under.
	DatabaseName = "rpger"
	// registryCollection holds duplicate-registry entries.
	registryCollection = "registry"

	// maxPoolSize bounds the driver's connection pool.
	maxPoolSize = 8
	// selectionTimeout bounds server discovery before a call is declared
	// unreachable.
	selectionTimeout = 5 * time.Second

	// splitThresholdBytes is the artifact size above which sections move to
	// a sibling collection. Mongo's document limit is 16MiB; splitting at
	// half leaves headroom for metadata growth.
	splitThresholdBytes = 8 << 20
)

// Registry entry statuses. A tentative row guards an in-flight run; completed
// rows are finished extractions; superseded marks a row taken over by a
// manual-override re-ingest.
const (
	StatusTentative  = "tentative"
	StatusCompleted  = "completed"
	StatusSuperseded = "superseded"
)

// RegistryEntry is one duplicate-registry row, keyed by canonical ISBN-13.
// SessionID is the last session to own the row; FirstIngestedAt survives a
// supersede.
type RegistryEntry struct {
	ISBN13          string    `bson:"_id" json:"isbn13"`
	Title           string    `bson:"title,omitempty" json:"title,omitempty"`
	Author          string    `bson:"author,omitempty" json:"author,omitempty"`
	Collection      string    `bson:"collection" json:"collection"`
	Status          string    `bson:"status" json:"status"`
	SessionID       string    `bson:"session_id" json:"session_id"`
	Sections        int       `bson:"sections" json:"sections"`
	Words           int       `bson:"words" json:"words"`
	FirstIngestedAt time.Time `bson:"first_ingested_at" json:"first_ingested_at"`
}

// sectionDoc is one split-mode section row.
type sectionDoc struct {
	ID      string        `bson:"_id"`
	Digest  string        `bson:"digest"`
	Section types.Section `bson:"section"`
}

// artifactDoc is the stored artifact head. Sections are inline unless the
// artifact was split.
type artifactDoc struct {
	ID       string          `bson:"_id"` // source digest
	Artifact *types.Artifact `bson:"artifact"`
	Split    bool            `bson:"split"`
	StoredAt time.Time       `bson:"stored_at"`
}

// Store is the document store handle. Safe for concurrent use.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the store and verifies reachability.
func Connect(ctx context.Context, uri string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(selectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, types.NewError(types.KindStoreUnreachable, "persist", err).
			WithHint("check DOCUMENT_STORE_URL")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, types.NewError(types.KindStoreUnreachable, "persist", err).
			WithHint("check DOCUMENT_STORE_URL")
	}
	return &Store{client: client, db: client.Database(DatabaseName)}, nil
}

// Close releases the connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping probes reachability for the health surface.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return types.NewError(types.KindStoreUnreachable, "persist", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the browse and dedup paths rely on.
func (s *Store) EnsureIndexes(ctx context.Context, collection string) error {
	sections := s.db.Collection(collection + "_sections")
	_, err := sections.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "section.page", Value: 1}}},
		{Keys: bson.D{{Key: "section.text", Value: "text"}}},
	})
	if err != nil {
		return mapMongoErr(err)
	}
	return nil
}

// InsertArtifact stores an artifact under its collection. Oversized
// artifacts are split: the head document keeps everything but sections, and
// sections land one-per-row in a sibling collection.
func (s *Store) InsertArtifact(ctx context.Context, collection string, artifact *types.Artifact) error {
	doc := artifactDoc{
		ID:       artifact.SourceDigest,
		Artifact: artifact,
		StoredAt: time.Now().UTC(),
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if len(raw) > splitThresholdBytes {
		return s.insertSplit(ctx, collection, artifact)
	}

	_, err = s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return mapMongoErr(err)
}

// insertSplit stores the artifact head without sections plus one row per
// section.
func (s *Store) insertSplit(ctx context.Context, collection string, artifact *types.Artifact) error {
	head := *artifact
	head.Sections = nil
	doc := artifactDoc{
		ID:       artifact.SourceDigest,
		Artifact: &head,
		Split:    true,
		StoredAt: time.Now().UTC(),
	}
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return mapMongoErr(err)
	}

	sections := s.db.Collection(collection + "_sections")
	models := make([]mongo.WriteModel, 0, len(artifact.Sections))
	for _, sec := range artifact.Sections {
		id := fmt.Sprintf("%s_p%d_%d", artifact.SourceDigest, sec.Page, sec.Ordinal)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(sectionDoc{ID: id, Digest: artifact.SourceDigest, Section: sec}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}
	_, err = sections.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return mapMongoErr(err)
}

// GetArtifact fetches a stored artifact, reassembling split sections.
func (s *Store) GetArtifact(ctx context.Context, collection, digest string) (*types.Artifact, error) {
	var doc artifactDoc
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": digest}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapMongoErr(err)
	}
	if !doc.Split {
		return doc.Artifact, nil
	}

	cur, err := s.db.Collection(collection+"_sections").Find(ctx,
		bson.M{"digest": digest},
		options.Find().SetSort(bson.D{{Key: "section.page", Value: 1}, {Key: "section.ordinal", Value: 1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row sectionDoc
		if err := cur.Decode(&row); err != nil {
			return nil, mapMongoErr(err)
		}
		doc.Artifact.Sections = append(doc.Artifact.Sections, row.Section)
	}
	return doc.Artifact, mapMongoErr(cur.Err())
}

// Page returns the sections of one page across every artifact in a
// collection.
func (s *Store) Page(ctx context.Context, collection string, page int) ([]types.Section, error) {
	var out []types.Section

	cur, err := s.db.Collection(collection+"_sections").Find(ctx,
		bson.M{"section.page": page},
		options.Find().SetSort(bson.D{{Key: "section.ordinal", Value: 1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row sectionDoc
		if err := cur.Decode(&row); err != nil {
			return nil, mapMongoErr(err)
		}
		out = append(out, row.Section)
	}
	if err := cur.Err(); err != nil {
		return nil, mapMongoErr(err)
	}
	if len(out) > 0 {
		return out, nil
	}

	// Fall back to inline artifacts.
	acur, err := s.db.Collection(collection).Find(ctx, bson.M{"split": false})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer acur.Close(ctx)
	for acur.Next(ctx) {
		var doc artifactDoc
		if err := acur.Decode(&doc); err != nil {
			return nil, mapMongoErr(err)
		}
		for _, sec := range doc.Artifact.Sections {
			if sec.Page == page {
				out = append(out, sec)
			}
		}
	}
	return out, mapMongoErr(acur.Err())
}

// Browse returns a window of split sections in (page, ordinal) order.
func (s *Store) Browse(ctx context.Context, collection string, offset, limit int) ([]types.Section, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.db.Collection(collection+"_sections").Find(ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "section.page", Value: 1}, {Key: "section.ordinal", Value: 1}}).
			SetSkip(int64(offset)).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []types.Section
	for cur.Next(ctx) {
		var row sectionDoc
		if err := cur.Decode(&row); err != nil {
			return nil, mapMongoErr(err)
		}
		out = append(out, row.Section)
	}
	return out, mapMongoErr(cur.Err())
}

// SearchText runs a text search over split sections.
func (s *Store) SearchText(ctx context.Context, collection, query string, limit int) ([]types.Section, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.db.Collection(collection+"_sections").Find(ctx,
		bson.M{"$text": bson.M{"$search": query}},
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)

	var out []types.Section
	for cur.Next(ctx) {
		var row sectionDoc
		if err := cur.Decode(&row); err != nil {
			return nil, mapMongoErr(err)
		}
		out = append(out, row.Section)
	}
	return out, mapMongoErr(cur.Err())
}

// ListCollections names the artifact collections in the database, excluding
// internal ones.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	var out []string
	for _, n := range names {
		if n == registryCollection || len(n) > 9 && n[len(n)-9:] == "_sections" {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Registry operations. The dedup stage owns the semantics; these are the raw
// rows.

// RegistryLookup returns the entry for an ISBN, nil when absent.
func (s *Store) RegistryLookup(ctx context.Context, isbn13 string) (*RegistryEntry, error) {
	var e RegistryEntry
	err := s.db.Collection(registryCollection).FindOne(ctx, bson.M{"_id": isbn13}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return &e, nil
}

// RegistryPutTentative inserts a tentative entry. When a row already exists
// the existing entry is returned with created=false and nothing is written.
func (s *Store) RegistryPutTentative(ctx context.Context, e RegistryEntry) (existing *RegistryEntry, created bool, err error) {
	e.Status = StatusTentative
	if e.FirstIngestedAt.IsZero() {
		e.FirstIngestedAt = time.Now().UTC()
	}
	_, err = s.db.Collection(registryCollection).InsertOne(ctx, e)
	if err == nil {
		return nil, true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		prior, lerr := s.RegistryLookup(ctx, e.ISBN13)
		if lerr != nil {
			return nil, false, lerr
		}
		return prior, false, nil
	}
	return nil, false, mapMongoErr(err)
}

// RegistrySupersede hands an existing row to a new session after a manual
// override. The row keeps its first-ingested-at; a later finalize flips it
// back to completed with fresh counts.
func (s *Store) RegistrySupersede(ctx context.Context, e RegistryEntry) error {
	res, err := s.db.Collection(registryCollection).UpdateOne(ctx,
		bson.M{"_id": e.ISBN13},
		bson.M{"$set": bson.M{
			"status":     StatusSuperseded,
			"session_id": e.SessionID,
			"collection": e.Collection,
			"title":      e.Title,
			"author":     e.Author,
		}})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return types.Errorf(types.KindStoreConflict, "persist",
			"registry entry for %s vanished during supersede", e.ISBN13)
	}
	return nil
}

// RegistryFinalize marks the session's entry completed with its final counts.
func (s *Store) RegistryFinalize(ctx context.Context, isbn13, sessionID string, sections, words int) error {
	res, err := s.db.Collection(registryCollection).UpdateOne(ctx,
		bson.M{"_id": isbn13, "session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":   StatusCompleted,
			"sections": sections,
			"words":    words,
		}})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return types.Errorf(types.KindStoreConflict, "persist",
			"registry entry for %s not owned by session", isbn13)
	}
	return nil
}

// RegistryDropTentative removes a tentative entry owned by the session.
// Completed and superseded entries are never dropped.
func (s *Store) RegistryDropTentative(ctx context.Context, isbn13, sessionID string) error {
	_, err := s.db.Collection(registryCollection).DeleteOne(ctx,
		bson.M{"_id": isbn13, "session_id": sessionID, "status": StatusTentative})
	return mapMongoErr(err)
}

// mapMongoErr folds driver errors into the failure taxonomy.
func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return types.NewError(types.KindStoreConflict, "persist", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.NewError(types.KindStoreUnreachable, "persist", err)
	}
	return types.NewError(types.KindStoreUnreachable, "persist", err)
}
