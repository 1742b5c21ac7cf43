package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"venuebook/models"
	"venuebook/utils/apperr"

	"go.uber.org/zap"
)

// PesapalConfig holds the merchant credentials and the registered IPN id.
type PesapalConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	NotificationID string
	BaseURL        string
}

// Pesapal status codes returned by GetTransactionStatus.
const (
	pesapalInvalid   = 0
	pesapalCompleted = 1
	pesapalFailed    = 2
	pesapalReversed  = 3
)

// PesapalGateway uses the Pesapal v3 hosted checkout, which offers M-Pesa
// among other methods.
type PesapalGateway struct {
	cfg    PesapalConfig
	rest   restClient
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewPesapalGateway creates a PesapalGateway. httpClient may be nil.
func NewPesapalGateway(cfg PesapalConfig, httpClient *http.Client, logger *zap.Logger) *PesapalGateway {
	return &PesapalGateway{cfg: cfg, rest: newRestClient(cfg.BaseURL, httpClient), logger: logger, now: time.Now}
}

func (g *PesapalGateway) Name() string { return Pesapal }

type pesapalError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *pesapalError) err() error {
	if e == nil || (e.Code == "" && e.Message == "") {
		return nil
	}
	return errors.New(e.Code + ": " + e.Message)
}

type pesapalTokenResponse struct {
	Token      string        `json:"token"`
	ExpiryDate time.Time     `json:"expiryDate"`
	Error      *pesapalError `json:"error"`
}

// accessToken returns a cached bearer token, refreshing it shortly before
// it expires.
func (g *PesapalGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Add(30*time.Second).Before(g.tokenExpiry) {
		return g.token, nil
	}

	var resp pesapalTokenResponse
	err := g.rest.do(ctx, http.MethodPost, "/api/Auth/RequestToken", "", map[string]string{
		"consumer_key":    g.cfg.ConsumerKey,
		"consumer_secret": g.cfg.ConsumerSecret,
	}, &resp)
	if err == nil {
		err = resp.Error.err()
	}
	if err == nil && resp.Token == "" {
		err = errors.New("empty token")
	}
	if err != nil {
		return "", apperr.External(Pesapal, err)
	}
	g.token = resp.Token
	g.tokenExpiry = resp.ExpiryDate
	if g.tokenExpiry.IsZero() {
		g.tokenExpiry = g.now().Add(5 * time.Minute)
	}
	return g.token, nil
}

type pesapalBillingAddress struct {
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
}

type pesapalOrderRequest struct {
	ID             string                `json:"id"`
	Currency       string                `json:"currency"`
	Amount         json.Number           `json:"amount"`
	Description    string                `json:"description"`
	CallbackURL    string                `json:"callback_url"`
	NotificationID string                `json:"notification_id"`
	BillingAddress pesapalBillingAddress `json:"billing_address"`
}

type pesapalOrderResponse struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Error             *pesapalError `json:"error"`
}

// Charge submits an order and returns the hosted checkout URL.
func (g *PesapalGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return ChargeResult{}, err
	}
	var resp pesapalOrderResponse
	err = g.rest.do(ctx, http.MethodPost, "/api/Transactions/SubmitOrderRequest", token, pesapalOrderRequest{
		ID:             req.Reference,
		Currency:       currencyOrKES(req.Currency),
		Amount:         json.Number(req.Amount.String()),
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		NotificationID: g.cfg.NotificationID,
		BillingAddress: pesapalBillingAddress{EmailAddress: req.Email, PhoneNumber: req.Phone},
	}, &resp)
	if err == nil {
		err = resp.Error.err()
	}
	if err != nil {
		return ChargeResult{}, apperr.External(Pesapal, err)
	}
	g.logger.Info("pesapal order submitted", zap.String("reference", req.Reference), zap.String("trackingId", resp.OrderTrackingID))
	return ChargeResult{
		Reference:            req.Reference,
		GatewayTransactionID: resp.OrderTrackingID,
		RedirectURL:          resp.RedirectURL,
	}, nil
}

type pesapalStatusResponse struct {
	Amount            json.Number   `json:"amount"`
	ConfirmationCode  string        `json:"confirmation_code"`
	StatusCode        int           `json:"status_code"`
	MerchantReference string        `json:"merchant_reference"`
	Error             *pesapalError `json:"error"`
}

func (g *PesapalGateway) transactionStatus(ctx context.Context, trackingID string) (pesapalStatusResponse, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return pesapalStatusResponse{}, err
	}
	var resp pesapalStatusResponse
	path := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)
	err = g.rest.do(ctx, http.MethodGet, path, token, nil, &resp)
	if err == nil {
		err = resp.Error.err()
	}
	if err != nil {
		return pesapalStatusResponse{}, apperr.External(Pesapal, err)
	}
	return resp, nil
}

// Refund asks Pesapal to reverse part or all of a completed payment.
func (g *PesapalGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	status, err := g.transactionStatus(ctx, req.GatewayTransactionID)
	if err != nil {
		return RefundResult{}, err
	}
	token, err := g.accessToken(ctx)
	if err != nil {
		return RefundResult{}, err
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	err = g.rest.do(ctx, http.MethodPost, "/api/Transactions/RefundRequest", token, map[string]interface{}{
		"confirmation_code": status.ConfirmationCode,
		"amount":            json.Number(req.Amount.String()),
		"username":          "venuebook",
		"remarks":           req.Reason,
	}, &resp)
	if err != nil {
		return RefundResult{}, apperr.External(Pesapal, err)
	}
	if resp.Status != "200" {
		return RefundResult{}, apperr.External(Pesapal, errors.New(resp.Message))
	}
	return RefundResult{RefundReference: status.ConfirmationCode, Status: "pending"}, nil
}

// ParseCallback handles the IPN. The notification only names the order, so
// the outcome is read back with GetTransactionStatus.
func (g *PesapalGateway) ParseCallback(ctx context.Context, cb Callback) (CallbackEvent, error) {
	trackingID := cb.Query.Get("OrderTrackingId")
	reference := cb.Query.Get("OrderMerchantReference")
	if trackingID == "" && len(cb.Body) > 0 {
		var body struct {
			OrderTrackingID        string `json:"OrderTrackingId"`
			OrderMerchantReference string `json:"OrderMerchantReference"`
		}
		if err := json.Unmarshal(cb.Body, &body); err == nil {
			trackingID, reference = body.OrderTrackingID, body.OrderMerchantReference
		}
	}
	if trackingID == "" {
		return CallbackEvent{}, apperr.Validation("OrderTrackingId", "required")
	}

	status, err := g.transactionStatus(ctx, trackingID)
	if err != nil {
		return CallbackEvent{}, err
	}
	if status.MerchantReference != "" {
		reference = status.MerchantReference
	}
	ev := CallbackEvent{Reference: reference, GatewayTransactionID: trackingID}
	switch status.StatusCode {
	case pesapalCompleted:
		amount, err := models.ParseMoney(status.Amount.String())
		if err != nil {
			return CallbackEvent{}, apperr.External(Pesapal, err)
		}
		ev.Amount, ev.Success, ev.Final = amount, true, true
	case pesapalFailed, pesapalInvalid:
		ev.Final = true
	case pesapalReversed:
		// Reversals are driven by our own refunds; nothing to confirm.
	}
	return ev, nil
}
