package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	bookingRepo "venuebook/database/repository/booking"
	documentRepo "venuebook/database/repository/document"
	listingRepo "venuebook/database/repository/listing"
	settingsRepo "venuebook/database/repository/settings"
	tokenRepo "venuebook/database/repository/token"
	transactionRepo "venuebook/database/repository/transaction"
	"venuebook/handlers"
	"venuebook/middleware"
	"venuebook/models"
	"venuebook/services/booking"
	"venuebook/services/documents"
	"venuebook/services/notification"
	"venuebook/services/payment"
	"venuebook/services/settings"
	"venuebook/services/storage"
	"venuebook/services/verification"
	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// fakeGateway confirms whatever the webhook body says.
type fakeGateway struct{}

func (fakeGateway) Name() string { return "fake" }

func (fakeGateway) Charge(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	return payment.ChargeResult{Reference: req.Reference, GatewayTransactionID: "fake-" + req.Reference}, nil
}

func (fakeGateway) Refund(_ context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	return payment.RefundResult{RefundReference: "rf-" + req.Reference, Status: "ok"}, nil
}

func (fakeGateway) ParseCallback(_ context.Context, cb payment.Callback) (payment.CallbackEvent, error) {
	var body struct {
		Reference string       `json:"reference"`
		Amount    models.Money `json:"amount"`
		Success   bool         `json:"success"`
	}
	if err := json.Unmarshal(cb.Body, &body); err != nil {
		return payment.CallbackEvent{}, err
	}
	return payment.CallbackEvent{
		Reference: body.Reference, GatewayTransactionID: "fake-" + body.Reference,
		Amount: body.Amount, Success: body.Success, Final: true,
	}, nil
}

type inbox struct {
	mu   sync.Mutex
	sent []notification.Email
}

func (m *inbox) Send(_ context.Context, e notification.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *inbox) verificationToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		body := m.sent[i].TextBody
		idx := strings.Index(body, "/api/listings/verify?token=")
		if idx < 0 {
			continue
		}
		raw := strings.Fields(body[idx:])[0]
		u, err := url.Parse(raw)
		if err == nil {
			return u.Query().Get("token")
		}
	}
	return ""
}

type APISuite struct {
	suite.Suite
	router *gin.Engine
	mail   *inbox
	store  *storage.MemoryStorage
	owner  string
	client string
	admin  string
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	s.mail = &inbox{}
	s.store = storage.NewMemoryStorage("http://files.test")

	listings := listingRepo.NewInMemoryListingRepo()
	settingsStore := settings.NewStore(settingsRepo.NewInMemorySettingsRepo(), nil, logger)
	health := utils.NewHealthMonitor(map[string]utils.Pinger{
		"database": func(context.Context) error { return nil },
	})
	health.Check(context.Background())

	h := &handlers.Handler{
		Listings: &verification.DefaultVerificationService{
			Listings: listings,
			Tokens:   tokenRepo.NewInMemoryTokenRepo(),
			Mailer:   s.mail,
			BaseURL:  "http://api.test",
			Logger:   logger,
		},
		Bookings: &booking.DefaultBookingService{
			Bookings: bookingRepo.NewInMemoryBookingRepo(),
			Listings: listings,
			Ledgers:  transactionRepo.NewInMemoryTransactionRepo(),
			Settings: settingsStore,
			Gateways: payment.NewRegistry(fakeGateway{}),
			Mailer:   s.mail,
			Logger:   logger,
		},
		Documents: documents.NewDocumentService(documentRepo.NewInMemoryDocumentRepo(), s.store, logger),
		Settings:  settingsStore,
		Health:    health,
		Logger:    logger,
	}

	issuer := utils.NewTokenIssuer("routes-test")
	token := func(sub string, role utils.Role) string {
		t, err := issuer.GenerateToken(sub, sub+"@example.com", role, time.Hour)
		s.Require().NoError(err)
		return t
	}
	s.owner = token("owner-1", utils.RoleOwner)
	s.client = token("client-1", utils.RoleClient)
	s.admin = token("admin-1", utils.RoleAdmin)

	s.router = gin.New()
	RegisterRoutes(s.router, h, middleware.NewAuthenticator(issuer))
}

func (s *APISuite) do(method, path, token string, body any) (int, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func (s *APISuite) serve(req *http.Request) (int, map[string]any) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// publishListing takes a venue from submission to public visibility.
func (s *APISuite) publishListing() string {
	code, out := s.do(http.MethodPost, "/api/listings", s.owner, map[string]any{
		"type":  "venue",
		"name":  "Karen Gardens",
		"price": 100000,
		"venue": map[string]any{"capacity": 300, "location": "Karen, Nairobi"},
	})
	s.Require().Equal(http.StatusCreated, code, out)
	id := out["listing"].(map[string]any)["id"].(string)

	code, out = s.do(http.MethodGet, "/api/listings/verify?token="+url.QueryEscape(s.mail.verificationToken()), "", nil)
	s.Require().Equal(http.StatusOK, code, out)

	code, out = s.do(http.MethodPost, "/api/admin/listings/"+id+"/approve", s.admin, map[string]any{"notes": "looks good"})
	s.Require().Equal(http.StatusOK, code, out)

	code, out = s.do(http.MethodPatch, "/api/listings/"+id+"/active", s.owner, map[string]any{"active": true})
	s.Require().Equal(http.StatusOK, code, out)
	return id
}

func (s *APISuite) TestHealth() {
	code, out := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("ok", out["status"])
}

func (s *APISuite) TestListingLifecycle() {
	code, _ := s.do(http.MethodPost, "/api/listings", s.client, map[string]any{"type": "venue", "name": "x"})
	s.Equal(http.StatusForbidden, code)

	id := s.publishListing()

	code, out := s.do(http.MethodGet, "/api/listings", "", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(out["listings"], 1)

	code, out = s.do(http.MethodGet, "/api/listings/"+id, "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal(true, out["listing"].(map[string]any)["admin_verified"])

	code, out = s.do(http.MethodGet, "/api/listings?type=boat", "", nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal("validation_error", out["code"])
}

func (s *APISuite) TestVerifyTokenTwiceFails() {
	code, _ := s.do(http.MethodPost, "/api/listings", s.owner, map[string]any{
		"type": "service_provider", "name": "DJ Tash", "price": 20000,
		"service": map[string]any{"category": "dj"},
	})
	s.Require().Equal(http.StatusCreated, code)
	token := s.mail.verificationToken()

	code, _ = s.do(http.MethodGet, "/api/listings/verify?token="+url.QueryEscape(token), "", nil)
	s.Require().Equal(http.StatusOK, code)
	code, out := s.do(http.MethodGet, "/api/listings/verify?token="+url.QueryEscape(token), "", nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("verification_failed", out["code"])
}

func (s *APISuite) TestUnverifiedListingIsHidden() {
	code, out := s.do(http.MethodPost, "/api/listings", s.owner, map[string]any{
		"type": "venue", "name": "Hidden Hall", "price": 5000,
		"venue": map[string]any{"capacity": 50, "location": "Westlands"},
	})
	s.Require().Equal(http.StatusCreated, code)
	id := out["listing"].(map[string]any)["id"].(string)

	code, _ = s.do(http.MethodGet, "/api/listings/"+id, "", nil)
	s.Equal(http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/api/listings/"+id, s.owner, nil)
	s.Equal(http.StatusOK, code)
}

func (s *APISuite) TestBookAndPayThroughWebhook() {
	listingID := s.publishListing()

	code, out := s.do(http.MethodPost, "/api/bookings", s.client, map[string]any{
		"listing_id": listingID,
		"event_date": time.Now().Add(60 * 24 * time.Hour).UTC().Format(time.RFC3339),
	})
	s.Require().Equal(http.StatusCreated, code, out)
	bookingID := out["booking"].(map[string]any)["id"].(string)

	code, out = s.do(http.MethodPost, "/api/bookings/"+bookingID+"/pay", s.client, map[string]any{"gateway": "fake"})
	s.Require().Equal(http.StatusAccepted, code, out)
	reference := out["reference"].(string)
	s.NotEmpty(reference)

	code, out = s.do(http.MethodPost, "/api/payments/webhook/fake", "", map[string]any{
		"reference": reference, "amount": 100000, "success": true,
	})
	s.Require().Equal(http.StatusOK, code, out)

	code, out = s.do(http.MethodGet, "/api/bookings/"+bookingID, s.client, nil)
	s.Require().Equal(http.StatusOK, code)
	b := out["booking"].(map[string]any)
	s.Equal("paid", b["payment_status"])
	s.InDelta(10000.0, b["commission_amount"], 0.001)
	s.InDelta(3000.0, b["transaction_fee_amount"], 0.001)
	s.InDelta(87000.0, b["seller_amount"], 0.001)

	code, out = s.do(http.MethodGet, "/api/bookings/"+bookingID+"/transactions", s.client, nil)
	s.Equal(http.StatusOK, code)
	s.NotEmpty(out["transactions"])

	// Refund window still open.
	code, out = s.do(http.MethodPost, "/api/admin/bookings/"+bookingID+"/payout", s.admin, nil)
	s.Equal(http.StatusConflict, code)
	s.Equal("payout_policy_violation", out["code"])

	code, _ = s.do(http.MethodPost, "/api/payments/webhook/unknown", "", map[string]any{})
	s.Equal(http.StatusNotFound, code)
}

func (s *APISuite) TestAdminSettings() {
	code, _ := s.do(http.MethodGet, "/api/admin/settings", s.owner, nil)
	s.Equal(http.StatusForbidden, code)
	code, _ = s.do(http.MethodGet, "/api/admin/settings", "", nil)
	s.Equal(http.StatusUnauthorized, code)

	code, out := s.do(http.MethodPut, "/api/admin/settings", s.admin, map[string]any{
		"commission_rate": 12.5, "venue_refund_window_hours": 72,
	})
	s.Require().Equal(http.StatusOK, code, out)
	got := out["settings"].(map[string]any)
	s.Equal(12.5, got["commission_rate"])
	s.Equal(3.0, got["transaction_fee_rate"])
	s.Equal(72.0, got["venue_refund_window_hours"])

	code, out = s.do(http.MethodPut, "/api/admin/settings", s.admin, map[string]any{"commission_rate": 99})
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal("validation_error", out["code"])
}

func (s *APISuite) TestDocumentUploadAndDelete() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("type", "certificate"))
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="licence.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	s.Require().NoError(err)
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.owner)
	code, out := s.serve(req)
	s.Require().Equal(http.StatusCreated, code, out)
	docID := out["document"].(map[string]any)["id"].(string)
	s.Equal(false, out["document"].(map[string]any)["is_public"])

	code, _ = s.do(http.MethodGet, "/api/documents/"+docID+"/url", "", nil)
	s.Equal(http.StatusForbidden, code)
	code, out = s.do(http.MethodGet, "/api/documents/"+docID+"/url?expires=600", s.owner, nil)
	s.Equal(http.StatusOK, code)
	s.NotEmpty(out["url"])

	code, out = s.do(http.MethodPost, "/api/admin/documents/"+docID+"/review", s.admin, map[string]any{"verified": false})
	s.Equal(http.StatusUnprocessableEntity, code, out)

	code, _ = s.do(http.MethodDelete, "/api/documents/"+docID, s.owner, nil)
	s.Equal(http.StatusNoContent, code)
	code, _ = s.do(http.MethodDelete, "/api/documents/"+docID, s.owner, nil)
	s.Equal(http.StatusNoContent, code)

	code, out = s.do(http.MethodPost, "/api/admin/maintenance/storage-cleanup", s.admin, nil)
	s.Equal(http.StatusOK, code, out)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
