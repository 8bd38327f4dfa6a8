package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicsync/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUsers keeps accounts in the users collection.
type MongoUsers struct {
	collection *mongo.Collection
}

func NewMongoUsers(collection *mongo.Collection) *MongoUsers {
	return &MongoUsers{collection: collection}
}

// EnsureIndexes creates a unique index on email
func (m *MongoUsers) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

func (m *MongoUsers) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := m.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return m.findOne(ctx, bson.M{"_id": objectID})
}

func (m *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (m *MongoUsers) FindAll(ctx context.Context) ([]models.User, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (m *MongoUsers) Update(ctx context.Context, id string, changes UserChanges) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	update := bson.M{"updatedAt": time.Now()}
	if changes.Name != nil {
		update["name"] = *changes.Name
	}
	if changes.Categories != nil {
		update["categories"] = changes.Categories
	}
	if changes.AvatarURL != nil {
		update["avatarUrl"] = *changes.AvatarURL
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err = m.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": update}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}
