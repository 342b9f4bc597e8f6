package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-todo-api/internal/models"
)

// todoDocument はtodosコレクションに保存される形です。
type todoDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
	Priority  string             `bson:"priority,omitempty"`
	DueDate   *time.Time         `bson:"dueDate,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *todoDocument) toModel() *models.Todo {
	t := &models.Todo{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Text:      d.Text,
		Completed: d.Completed,
		Priority:  models.Priority(d.Priority),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	return t
}

// MongoTodoRepository はMongoDBのtodosコレクションを操作します。
type MongoTodoRepository struct {
	coll *mongo.Collection
}

// NewMongoTodoRepository は新しいMongoTodoRepositoryを作成します。
func NewMongoTodoRepository(db *mongo.Database) *MongoTodoRepository {
	return &MongoTodoRepository{coll: db.Collection("todos")}
}

func (r *MongoTodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	now := timestamp(time.Millisecond)
	doc := todoDocument{
		ID:        primitive.NewObjectID(),
		UserID:    t.UserID,
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  string(t.Priority),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC().Truncate(time.Millisecond)
		doc.DueDate = &due
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTodoNotFound
	}
	var doc todoDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) FindByUserID(ctx context.Context, userID string) ([]*models.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer cur.Close(ctx)

	todos := make([]*models.Todo, 0)
	for cur.Next(ctx) {
		var doc todoDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("could not decode todo: %w", err)
		}
		todos = append(todos, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error during cursor iteration: %w", err)
	}
	return todos, nil
}

func (r *MongoTodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrTodoNotFound
	}

	set := bson.M{"updatedAt": timestamp(time.Millisecond)}
	unset := bson.M{}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.ClearPriority {
		unset["priority"] = ""
	} else if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.ClearDueDate {
		unset["dueDate"] = ""
	} else if patch.DueDate != nil {
		set["dueDate"] = patch.DueDate.UTC().Truncate(time.Millisecond)
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc todoDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not update todo: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTodoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrTodoNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("could not delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrTodoNotFound
	}
	return nil
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// MongoUserRepository はMongoDBのusersコレクションを操作します。
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository は新しいMongoUserRepositoryを作成します。
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection("users")}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := timestamp(time.Millisecond)
	doc := userDocument{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return doc.toModel(), nil
}
