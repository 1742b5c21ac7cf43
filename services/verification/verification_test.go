package verification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	listingRepo "venuebook/database/repository/listing"
	tokenRepo "venuebook/database/repository/token"
	"venuebook/models"
	"venuebook/services/notification"
	"venuebook/utils"
	"venuebook/utils/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Email
	fail error
}

func (m *recordingMailer) Send(_ context.Context, e notification.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMailer) last() notification.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// tokenFrom pulls the raw token out of a verification email.
func tokenFrom(e notification.Email) string {
	body := e.TextBody
	i := strings.Index(body, "token=")
	if i < 0 {
		return ""
	}
	rest := body[i+len("token="):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// flakyListings fails the next few status transitions as a dropped
// database connection would.
type flakyListings struct {
	*listingRepo.InMemoryListingRepo
	failures int
}

func (f *flakyListings) TransitionStatus(ctx context.Context, id string, change listingRepo.StatusChange) (*models.Listing, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("server selection error: context deadline exceeded")
	}
	return f.InMemoryListingRepo.TransitionStatus(ctx, id, change)
}

type VerificationSuite struct {
	suite.Suite
	svc      *DefaultVerificationService
	listings *listingRepo.InMemoryListingRepo
	mailer   *recordingMailer
	clock    time.Time
	owner    utils.Session
	admin    utils.Session
}

func (s *VerificationSuite) SetupTest() {
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.listings = listingRepo.NewInMemoryListingRepo()
	s.mailer = &recordingMailer{}
	s.svc = &DefaultVerificationService{
		Listings: s.listings,
		Tokens:   tokenRepo.NewInMemoryTokenRepo(),
		Mailer:   s.mailer,
		TokenTTL: 24 * time.Hour,
		BaseURL:  "https://venuebook.test",
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return s.clock },
	}
	s.owner = utils.Session{UserID: "owner-1", Email: "owner@example.com", Role: utils.RoleOwner}
	s.admin = utils.Session{UserID: "admin-1", Email: "admin@example.com", Role: utils.RoleAdmin}
}

func venueDraft() ListingDraft {
	return ListingDraft{
		Type:  models.ListingVenue,
		Name:  "Karen Gardens",
		Price: models.KES(100000),
		Venue: &models.VenueDetails{Capacity: 300, Location: "Karen, Nairobi"},
	}
}

func (s *VerificationSuite) submit() (*models.Listing, string) {
	l, err := s.svc.SubmitListing(context.Background(), s.owner, venueDraft())
	s.Require().NoError(err)
	token := tokenFrom(s.mailer.last())
	s.Require().NotEmpty(token)
	return l, token
}

func (s *VerificationSuite) toUnderReview() *models.Listing {
	l, token := s.submit()
	_, err := s.svc.VerifyListing(context.Background(), token)
	s.Require().NoError(err)
	return l
}

func (s *VerificationSuite) TestSubmitSendsVerificationEmail() {
	l, token := s.submit()
	s.Equal(models.StatusPending, l.VerificationStatus)
	s.False(l.AdminVerified)
	s.False(l.IsActive)

	e := s.mailer.last()
	s.Equal("owner@example.com", e.To)
	s.Contains(e.TextBody, "https://venuebook.test/api/listings/verify?token="+token)
	s.Len(token, 43)
}

func (s *VerificationSuite) TestSubmitValidatesDraft() {
	bad := []ListingDraft{
		{Type: "castle", Name: "x", Venue: &models.VenueDetails{Capacity: 1, Location: "x"}},
		{Type: models.ListingVenue, Name: " ", Venue: &models.VenueDetails{Capacity: 1, Location: "x"}},
		{Type: models.ListingVenue, Name: "x", Price: -1, Venue: &models.VenueDetails{Capacity: 1, Location: "x"}},
		{Type: models.ListingVenue, Name: "x"},
		{Type: models.ListingServiceProvider, Name: "x", Venue: &models.VenueDetails{Capacity: 1, Location: "x"}},
		{Type: models.ListingServiceProvider, Name: "x", Service: &models.ServiceDetails{}},
	}
	for _, d := range bad {
		_, err := s.svc.SubmitListing(context.Background(), s.owner, d)
		s.True(apperr.IsValidation(err), "%+v", d)
	}
	s.Empty(s.mailer.sent)

	client := utils.Session{UserID: "c1", Role: utils.RoleClient}
	_, err := s.svc.SubmitListing(context.Background(), client, venueDraft())
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *VerificationSuite) TestVerifyTokenIsSingleUse() {
	l, token := s.submit()

	verified, err := s.svc.VerifyListing(context.Background(), token)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, verified.VerificationStatus)

	_, err = s.svc.VerifyListing(context.Background(), token)
	s.ErrorIs(err, apperr.ErrTokenUsed)

	stored, _ := s.listings.GetByID(context.Background(), l.ID)
	s.Equal(models.StatusUnderReview, stored.VerificationStatus)
}

func (s *VerificationSuite) TestVerifyStoreFailureKeepsTokenUsable() {
	l, token := s.submit()
	s.svc.Listings = &flakyListings{InMemoryListingRepo: s.listings, failures: 1}

	_, err := s.svc.VerifyListing(context.Background(), token)
	s.Require().Error(err)
	s.NotErrorIs(err, apperr.ErrTokenUsed)
	stored, _ := s.listings.GetByID(context.Background(), l.ID)
	s.Equal(models.StatusPending, stored.VerificationStatus)

	verified, err := s.svc.VerifyListing(context.Background(), token)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, verified.VerificationStatus)

	_, err = s.svc.VerifyListing(context.Background(), token)
	s.ErrorIs(err, apperr.ErrTokenUsed)
}

func (s *VerificationSuite) TestVerifyConcurrentConsumersOneWins() {
	_, token := s.submit()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.VerifyListing(context.Background(), token)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			s.ErrorIs(err, apperr.ErrTokenUsed)
		}
	}
	s.Equal(1, wins)
}

func (s *VerificationSuite) TestVerifyExpiredAndUnknownTokens() {
	_, token := s.submit()

	_, err := s.svc.VerifyListing(context.Background(), "not-a-token")
	s.ErrorIs(err, apperr.ErrTokenInvalid)
	_, err = s.svc.VerifyListing(context.Background(), "")
	s.ErrorIs(err, apperr.ErrTokenInvalid)

	s.clock = s.clock.Add(25 * time.Hour)
	_, err = s.svc.VerifyListing(context.Background(), token)
	s.ErrorIs(err, apperr.ErrTokenExpired)
	s.True(apperr.IsVerification(err))
}

func (s *VerificationSuite) TestResendIssuesNewToken() {
	l, first := s.submit()
	second, err := s.svc.InitiateVerification(context.Background(), models.ListingVenue, l.ID, s.owner.UserID)
	s.Require().NoError(err)
	s.NotEqual(first, second)

	_, err = s.svc.VerifyListing(context.Background(), second)
	s.Require().NoError(err)

	// The older token is still unconsumed but the listing has moved on.
	_, err = s.svc.VerifyListing(context.Background(), first)
	s.ErrorIs(err, apperr.ErrTokenUsed)

	_, err = s.svc.InitiateVerification(context.Background(), models.ListingVenue, l.ID, s.owner.UserID)
	s.True(apperr.IsValidation(err), "listing is no longer pending")
}

func (s *VerificationSuite) TestInitiateRequiresOwner() {
	l, _ := s.submit()
	_, err := s.svc.InitiateVerification(context.Background(), models.ListingVenue, l.ID, "someone-else")
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.InitiateVerification(context.Background(), models.ListingVenue, "missing", s.owner.UserID)
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *VerificationSuite) TestEmailFailureSurfacesAsExternal() {
	s.mailer.fail = errors.New("smtp down")
	l, err := s.svc.SubmitListing(context.Background(), s.owner, venueDraft())
	s.True(apperr.IsExternal(err))
	s.Require().NotNil(l)

	stored, getErr := s.listings.GetByID(context.Background(), l.ID)
	s.Require().NoError(getErr)
	s.Equal(models.StatusPending, stored.VerificationStatus)

	s.mailer.fail = nil
	_, err = s.svc.InitiateVerification(context.Background(), models.ListingVenue, l.ID, s.owner.UserID)
	s.NoError(err)
}

func (s *VerificationSuite) TestApproveAndActivate() {
	l := s.toUnderReview()

	_, err := s.svc.SetListingActive(context.Background(), s.owner, l.ID, true)
	s.True(apperr.IsValidation(err), "cannot activate before approval")

	approved, err := s.svc.ApproveListing(context.Background(), s.admin, l.ID, "")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, approved.VerificationStatus)
	s.True(approved.AdminVerified)
	s.Require().NotNil(approved.AdminVerifiedAt)
	s.Equal(s.clock, *approved.AdminVerifiedAt)
	s.Equal("Your listing is live: Karen Gardens", s.mailer.last().Subject)

	public, err := s.svc.ListPublic(context.Background(), listingRepo.PublicFilter{})
	s.Require().NoError(err)
	s.Empty(public, "verified but inactive listings stay hidden")

	active, err := s.svc.SetListingActive(context.Background(), s.owner, l.ID, true)
	s.Require().NoError(err)
	s.True(active.IsActive)

	public, err = s.svc.ListPublic(context.Background(), listingRepo.PublicFilter{Type: models.ListingVenue})
	s.Require().NoError(err)
	s.Len(public, 1)

	_, err = s.svc.ApproveListing(context.Background(), s.admin, l.ID, "")
	s.True(apperr.IsValidation(err), "verified is terminal")
}

func (s *VerificationSuite) TestApproveRequiresAdmin() {
	l := s.toUnderReview()
	_, err := s.svc.ApproveListing(context.Background(), s.owner, l.ID, "")
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *VerificationSuite) TestRejectNeedsNotesAndAllowsResubmit() {
	l := s.toUnderReview()

	_, err := s.svc.RejectListing(context.Background(), s.admin, l.ID, "  ")
	s.True(apperr.IsValidation(err))

	rejected, err := s.svc.RejectListing(context.Background(), s.admin, l.ID, "Photos are missing")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.VerificationStatus)
	s.Equal("Photos are missing", rejected.AdminNotes)
	s.Contains(s.mailer.last().TextBody, "Photos are missing")

	_, err = s.svc.SetListingActive(context.Background(), s.owner, l.ID, true)
	s.True(apperr.IsValidation(err))

	again, err := s.svc.ResubmitListing(context.Background(), s.owner, l.ID)
	s.Require().NoError(err)
	s.NotEqual(l.ID, again.ID)
	s.Equal(l.ID, again.ResubmittedFrom)
	s.Equal(models.StatusPending, again.VerificationStatus)
	s.Empty(again.AdminNotes)
	s.Equal("Karen Gardens", again.Name)

	_, err = s.svc.ResubmitListing(context.Background(), s.owner, again.ID)
	s.True(apperr.IsValidation(err), "only rejected listings are resubmitted")
}

func (s *VerificationSuite) TestConcurrentReviewOnlyOneWins() {
	l := s.toUnderReview()

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = s.svc.ApproveListing(context.Background(), s.admin, l.ID, "")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = s.svc.RejectListing(context.Background(), s.admin, l.ID, "duplicate")
	}()
	wg.Wait()

	s.True((approveErr == nil) != (rejectErr == nil), "exactly one review wins")
	loser := approveErr
	if loser == nil {
		loser = rejectErr
	}
	s.True(apperr.IsValidation(loser))
	s.Contains(loser.Error(), "no longer under review")
}

func (s *VerificationSuite) TestGetListingVisibility() {
	l, _ := s.submit()

	_, err := s.svc.GetListing(context.Background(), nil, l.ID)
	s.ErrorIs(err, apperr.ErrNotFound)

	got, err := s.svc.GetListing(context.Background(), &s.owner, l.ID)
	s.Require().NoError(err)
	s.Equal(l.ID, got.ID)

	_, err = s.svc.GetListing(context.Background(), &s.admin, l.ID)
	s.NoError(err)
}

func (s *VerificationSuite) TestListByStatus() {
	s.toUnderReview()
	s.submit()

	queue, err := s.svc.ListByStatus(context.Background(), s.admin, models.StatusUnderReview)
	s.Require().NoError(err)
	s.Len(queue, 1)

	_, err = s.svc.ListByStatus(context.Background(), s.admin, "bogus")
	s.True(apperr.IsValidation(err))
	_, err = s.svc.ListByStatus(context.Background(), s.owner, models.StatusPending)
	s.ErrorIs(err, apperr.ErrForbidden)
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func TestStateTable(t *testing.T) {
	legal := map[[2]models.VerificationStatus]bool{
		{models.StatusPending, models.StatusUnderReview}:  true,
		{models.StatusUnderReview, models.StatusVerified}: true,
		{models.StatusUnderReview, models.StatusRejected}: true,
	}
	all := []models.VerificationStatus{models.StatusPending, models.StatusUnderReview, models.StatusVerified, models.StatusRejected}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]models.VerificationStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, IsTerminal(models.StatusVerified))
	assert.True(t, IsTerminal(models.StatusRejected))
	assert.False(t, IsTerminal(models.StatusPending))
	assert.False(t, IsTerminal("bogus"))
	require.Equal(t, []models.VerificationStatus{models.StatusVerified, models.StatusRejected}, NextStates(models.StatusUnderReview))
	assert.Empty(t, NextStates(models.StatusVerified))
}
