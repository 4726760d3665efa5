package userstore

import (
	"context"
	"errors"

	"github.com/quireworks/quire/internal/app/system/auth"
	"github.com/quireworks/quire/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher and auth.TelegramUserLookup,
// loading fresh user data on each request. A nil Identity with a nil
// error means no matching active user; a non-nil error means the lookup
// itself failed and the caller must not treat the credential as bad.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a Fetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

var fetchProjection = options.FindOne().SetProjection(bson.M{
	"_id":       1,
	"full_name": 1,
	"email":     1,
	"is_admin":  1,
	"status":    1,
})

// FetchUser retrieves a user by hex id. Implements auth.UserFetcher.
// A malformed id is no user, not a failure.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.Identity, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}
	return f.fetch(ctx, bson.M{"_id": oid})
}

// FetchTelegramUser retrieves the user linked to a verified Telegram
// user id. Implements auth.TelegramUserLookup.
func (f *Fetcher) FetchTelegramUser(ctx context.Context, telegramID int64) (*auth.Identity, error) {
	if telegramID == 0 {
		return nil, nil
	}
	return f.fetch(ctx, bson.M{"telegram_id": telegramID})
}

func (f *Fetcher) fetch(ctx context.Context, filter bson.M) (*auth.Identity, error) {
	var u models.User
	err := f.users.FindOne(ctx, filter, fetchProjection).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		// Driver failure: the credential may be perfectly valid, so it
		// must surface as an upstream problem, never as a rejection.
		return nil, err
	}
	if u.Status == models.StatusDisabled {
		return nil, nil
	}
	return &auth.Identity{
		UserID:  u.ID.Hex(),
		Name:    u.FullName,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}, nil
}
