package tokenRepo

import (
	"context"
	"testing"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoTokenRepo_Consume(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mt.Run("claims only unconsumed live tokens", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "token_hash", Value: "h1"},
			{Key: "entity_id", Value: "listing-1"},
			{Key: "expires_at", Value: now.Add(time.Hour)},
			{Key: "consumed_at", Value: now},
		}}))

		tok, err := repo.Consume(context.Background(), "h1", now)
		require.NoError(mt, err)
		assert.Equal(mt, "listing-1", tok.EntityID)
		require.NotNil(mt, tok.ConsumedAt)

		evt := mt.GetStartedEvent()
		require.Equal(mt, "findAndModify", evt.CommandName)
		q := evt.Command.Lookup("query").Document()
		assert.Equal(mt, "h1", q.Lookup("token_hash").StringValue())
		assert.Equal(mt, bson.TypeNull, q.Lookup("consumed_at").Type)
		assert.True(mt, now.Equal(q.Lookup("expires_at", "$gt").Time()))
		set := evt.Command.Lookup("update", "$set").Document()
		assert.True(mt, now.Equal(set.Lookup("consumed_at").Time()))
	})

	mt.Run("already consumed", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "venuebook.verification_tokens", mtest.FirstBatch, bson.D{
				{Key: "token_hash", Value: "h1"},
				{Key: "expires_at", Value: now.Add(time.Hour)},
				{Key: "consumed_at", Value: now.Add(-time.Minute)},
			}),
		)
		_, err := repo.Consume(context.Background(), "h1", now)
		assert.ErrorIs(mt, err, apperr.ErrAlreadyUsed)
	})

	mt.Run("expired", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "venuebook.verification_tokens", mtest.FirstBatch, bson.D{
				{Key: "token_hash", Value: "h1"},
				{Key: "expires_at", Value: now.Add(-time.Hour)},
				{Key: "consumed_at", Value: nil},
			}),
		)
		_, err := repo.Consume(context.Background(), "h1", now)
		assert.ErrorIs(mt, err, apperr.ErrExpired)
	})

	mt.Run("unknown", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "venuebook.verification_tokens", mtest.FirstBatch),
		)
		_, err := repo.Consume(context.Background(), "nope", now)
		assert.ErrorIs(mt, err, apperr.ErrNotFound)
	})
}

func TestMongoTokenRepo_Release(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mt.Run("clears the matching claim", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1},
		))
		require.NoError(mt, repo.Release(context.Background(), "h1", at))

		evt := mt.GetStartedEvent()
		q := evt.Command.Lookup("updates", "0", "q").Document()
		assert.True(mt, at.Equal(q.Lookup("consumed_at").Time()))
		u := evt.Command.Lookup("updates", "0", "u", "$set").Document()
		assert.Equal(mt, bson.TypeNull, u.Lookup("consumed_at").Type)
	})

	mt.Run("claim already gone", func(mt *mtest.T) {
		repo := &MongoTokenRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0},
		))
		assert.ErrorIs(mt, repo.Release(context.Background(), "h1", at), apperr.ErrNotFound)
	})
}

func TestInMemoryTokenRepo_Release(t *testing.T) {
	repo := NewInMemoryTokenRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(context.Background(), &models.VerificationToken{
		TokenHash: "h1", EntityID: "listing-1", ExpiresAt: now.Add(time.Hour),
	}))

	_, err := repo.Consume(context.Background(), "h1", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Release(context.Background(), "h1", now.Add(time.Second)), apperr.ErrNotFound)
	require.NoError(t, repo.Release(context.Background(), "h1", now))

	_, err = repo.Consume(context.Background(), "h1", now)
	require.NoError(t, err)
	_, err = repo.Consume(context.Background(), "h1", now)
	assert.ErrorIs(t, err, apperr.ErrAlreadyUsed)
}
