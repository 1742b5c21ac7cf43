package listingRepo

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

func TestMongoListingRepo_TransitionStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	change := StatusChange{From: models.StatusPending, To: models.StatusUnderReview, At: at}

	mt.Run("guards on the current status", func(mt *mtest.T) {
		repo := &MongoListingRepo{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "id", Value: "listing-1"},
			{Key: "verification_status", Value: "under_review"},
		}}))

		l, err := repo.TransitionStatus(context.Background(), "listing-1", change)
		require.NoError(mt, err)
		assert.Equal(mt, models.StatusUnderReview, l.VerificationStatus)

		evt := mt.GetStartedEvent()
		require.Equal(mt, "findAndModify", evt.CommandName)
		q := evt.Command.Lookup("query").Document()
		assert.Equal(mt, "listing-1", q.Lookup("id").StringValue())
		assert.Equal(mt, "pending", q.Lookup("verification_status").StringValue())
		set := evt.Command.Lookup("update", "$set").Document()
		assert.Equal(mt, "under_review", set.Lookup("verification_status").StringValue())
		_, err = set.LookupErr("admin_notes")
		assert.Error(mt, err, "empty notes are not written")
	})

	mt.Run("listing moved on", func(mt *mtest.T) {
		repo := &MongoListingRepo{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "venuebook.listings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		_, err := repo.TransitionStatus(context.Background(), "listing-1", change)
		assert.ErrorIs(mt, err, apperr.ErrInvalidState)
	})
}
