package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/aircnc/internal/model"
)

type userDoc struct {
	Email     string    `bson:"email"`
	Name      string    `bson:"name,omitempty"`
	Image     string    `bson:"image,omitempty"`
	Role      string    `bson:"role,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	users *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{users: db.Collection(usersCollection)}
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return &model.User{
		Email:     doc.Email,
		Name:      doc.Name,
		Image:     doc.Image,
		Role:      doc.Role,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Upsert はユーザーを作成または更新する。空文字のフィールドは既存の値を維持する。
func (r *MongoUserRepo) Upsert(ctx context.Context, email string, in model.UserInput) (*model.UpdateResult, error) {
	now := time.Now().UTC()
	set := bson.D{{Key: "updatedAt", Value: now}}
	if in.Name != "" {
		set = append(set, bson.E{Key: "name", Value: in.Name})
	}
	if in.Image != "" {
		set = append(set, bson.E{Key: "image", Value: in.Image})
	}
	if in.Role != "" {
		set = append(set, bson.E{Key: "role", Value: in.Role})
	}

	res, err := r.users.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{
			{Key: "$set", Value: set},
			{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: now}}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if res.UpsertedCount > 0 {
		return model.NewUpsertedResult(email), nil
	}
	return model.NewUpdateResult(res.MatchedCount, res.ModifiedCount), nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
