package bookingRepo

import (
	"context"
	"testing"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoBookingRepo_UpdateIf(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	expect := Expect{PaymentStatus: models.PaymentPaid, PayoutStatus: models.PayoutPending}
	booking := func() *models.Booking {
		return &models.Booking{ID: "bk-1", PaymentStatus: models.PaymentPaid, PayoutStatus: models.PayoutProcessed}
	}

	mt.Run("filters on id and both statuses", func(mt *mtest.T) {
		repo := &MongoBookingRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, repo.UpdateIf(context.Background(), booking(), expect))

		evt := mt.GetStartedEvent()
		require.Equal(mt, "update", evt.CommandName)
		q := evt.Command.Lookup("updates", "0", "q").Document()
		assert.Equal(mt, "bk-1", q.Lookup("id").StringValue())
		assert.Equal(mt, "paid", q.Lookup("payment_status").StringValue())
		assert.Equal(mt, "pending", q.Lookup("payout_status").StringValue())

		u := evt.Command.Lookup("updates", "0", "u").Document()
		assert.Equal(mt, "processed", u.Lookup("payout_status").StringValue())
	})

	mt.Run("stale statuses", func(mt *mtest.T) {
		repo := &MongoBookingRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "venuebook.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		err := repo.UpdateIf(context.Background(), booking(), expect)
		assert.ErrorIs(mt, err, apperr.ErrInvalidState)
	})

	mt.Run("missing booking", func(mt *mtest.T) {
		repo := &MongoBookingRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "venuebook.bookings", mtest.FirstBatch),
		)
		err := repo.UpdateIf(context.Background(), booking(), expect)
		assert.ErrorIs(mt, err, apperr.ErrNotFound)
	})

	mt.Run("duplicate payment reference", func(mt *mtest.T) {
		repo := &MongoBookingRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))
		err := repo.UpdateIf(context.Background(), booking(), expect)
		assert.ErrorIs(mt, err, apperr.ErrConflict)
	})
}
