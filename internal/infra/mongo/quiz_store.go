package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quizforge-service/internal/domain"
)

// CollectionName is where quiz documents live.
const CollectionName = "quizzes"

// QuizStore keeps quizzes as MongoDB documents keyed by quiz id.
type QuizStore struct {
	collection *mongo.Collection
}

type quizDocument struct {
	ID           string            `bson:"_id"`
	OwnerID      string            `bson:"userId"`
	Title        string            `bson:"title"`
	Description  string            `bson:"description"`
	Tags         []string          `bson:"tags"`
	Questions    []domain.Question `bson:"questions"`
	Status       domain.Status     `bson:"status"`
	Featured     bool              `bson:"featured"`
	IsTemplate   bool              `bson:"isTemplate"`
	Settings     domain.Settings   `bson:"settings"`
	Theme        domain.Theme      `bson:"theme"`
	CreatedAt    time.Time         `bson:"createdAt"`
	LastModified time.Time         `bson:"lastModified"`
}

func NewQuizStore(db *mongo.Database) *QuizStore {
	return &QuizStore{collection: db.Collection(CollectionName)}
}

// EnsureIndexes creates the owner listing index.
func (s *QuizStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastModified", Value: -1}},
	})
	if err != nil {
		return unavailable("create indexes", err)
	}
	return nil
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz, ownerID string) (string, error) {
	doc := toDocument(quiz)
	doc.ID = domain.NewID()
	doc.OwnerID = ownerID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.LastModified.IsZero() {
		doc.LastModified = doc.CreatedAt
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", unavailable("insert quiz", err)
	}
	return doc.ID, nil
}

func (s *QuizStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	var doc quizDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, unavailable("find quiz", err)
	}
	return doc.toQuiz(), nil
}

func (s *QuizStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastModified", Value: -1}})
	cur, err := s.collection.Find(ctx, bson.M{"userId": ownerID}, opts)
	if err != nil {
		return nil, unavailable("list quizzes", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Quiz, 0)
	for cur.Next(ctx) {
		var doc quizDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode quiz: %w", err)
		}
		out = append(out, doc.toQuiz())
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("list quizzes", err)
	}
	return out, nil
}

// Update applies the patch with a single $set of the provided fields.
func (s *QuizStore) Update(ctx context.Context, id string, patch domain.QuizPatch) error {
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": setFields(patch)})
	if err != nil {
		return unavailable("update quiz", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable("delete quiz", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func setFields(p domain.QuizPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Tags != nil {
		set["tags"] = nonNilTags(*p.Tags)
	}
	if p.Questions != nil {
		set["questions"] = *p.Questions
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Featured != nil {
		set["featured"] = *p.Featured
	}
	if p.IsTemplate != nil {
		set["isTemplate"] = *p.IsTemplate
	}
	if p.Settings != nil {
		set["settings"] = *p.Settings
	}
	if p.Theme != nil {
		set["theme"] = *p.Theme
	}
	at := p.LastModified
	if at.IsZero() {
		at = time.Now().UTC()
	}
	set["lastModified"] = at
	return set
}

func toDocument(q domain.Quiz) quizDocument {
	q = q.Clone()
	return quizDocument{
		ID:           q.ID,
		OwnerID:      q.OwnerID,
		Title:        q.Title,
		Description:  q.Description,
		Tags:         nonNilTags(q.Tags),
		Questions:    q.Questions,
		Status:       q.Status,
		Featured:     q.Featured,
		IsTemplate:   q.IsTemplate,
		Settings:     q.Settings,
		Theme:        q.Theme,
		CreatedAt:    q.CreatedAt,
		LastModified: q.LastModified,
	}
}

func (d quizDocument) toQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           d.ID,
		OwnerID:      d.OwnerID,
		Title:        d.Title,
		Description:  d.Description,
		Tags:         nonNilTags(d.Tags),
		Questions:    d.Questions,
		Status:       d.Status,
		Featured:     d.Featured,
		IsTemplate:   d.IsTemplate,
		Settings:     d.Settings,
		Theme:        d.Theme,
		CreatedAt:    d.CreatedAt.UTC(),
		LastModified: d.LastModified.UTC(),
	}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
