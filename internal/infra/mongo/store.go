package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"survey-service/internal/domain"
)

// Collection names of the survey document store.
const (
	QuestionsCollection = "questions"
	ResponsesCollection = "responses"
	SettingsCollection  = "settings"
)

const settingsID = "settings"

// Store keeps questions, responses and the settings singleton in MongoDB collections.
type Store struct {
	questions *mongo.Collection
	responses *mongo.Collection
	settings  *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		questions: db.Collection(QuestionsCollection),
		responses: db.Collection(ResponsesCollection),
		settings:  db.Collection(SettingsCollection),
	}
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes used by sorted listing and the eligibility lookup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.questions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "order", Value: 1}}}); err != nil {
		return fmt.Errorf("create questions index: %w", err)
	}
	if _, err := s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "user_email", Value: 1}}}); err != nil {
		return fmt.Errorf("create responses index: %w", err)
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.questions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer cursor.Close(ctx)

	questions := []domain.Question{}
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	return questions, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var q domain.Question
	err := s.questions.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Question{}, domain.QuestionNotFound(id)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("find question: %w", err)
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	if _, err := s.questions.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	res, err := s.questions.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	if err != nil {
		return fmt.Errorf("replace question: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.QuestionNotFound(q.ID)
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.questions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.QuestionNotFound(id)
	}
	return nil
}

func (s *Store) AppendResponse(ctx context.Context, r domain.Response) error {
	if _, err := s.responses.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *Store) ListResponses(ctx context.Context) ([]domain.Response, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.responses.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find responses: %w", err)
	}
	defer cursor.Close(ctx)

	responses := []domain.Response{}
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, fmt.Errorf("failed to decode responses: %w", err)
	}
	return responses, nil
}

func (s *Store) CountResponsesByEmail(ctx context.Context, email string) (int, error) {
	n, err := s.responses.CountDocuments(ctx, bson.M{"user_email": email})
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return int(n), nil
}

type settingsDocument struct {
	ID              string `bson:"_id"`
	domain.Settings `bson:",inline"`
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var doc settingsDocument
	err := s.settings.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Settings{}, domain.SettingsNotFound()
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("find settings: %w", err)
	}
	return doc.Settings, nil
}

// UpdateSettings $sets only the patched fields; an upsert leaves the others at their zero defaults.
func (s *Store) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) error {
	set := bson.M{}
	if patch.AllowMultipleResponses != nil {
		set["allow_multiple_responses"] = *patch.AllowMultipleResponses
	}
	if patch.AdminPasswordHash != nil {
		set["admin_password_hash"] = *patch.AdminPasswordHash
	}
	if len(set) == 0 {
		return nil
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.settings.UpdateOne(ctx, bson.M{"_id": settingsID}, bson.M{"$set": set}, opts); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
