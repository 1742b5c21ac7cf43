package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"venuebook/models"
	"venuebook/utils/apperr"

	"go.uber.org/zap"
)

// FlutterwaveConfig holds the account credentials.
type FlutterwaveConfig struct {
	SecretKey  string
	SecretHash string
	BaseURL    string
}

// FlutterwaveGateway charges M-Pesa wallets through Flutterwave's v3 API.
type FlutterwaveGateway struct {
	cfg    FlutterwaveConfig
	rest   restClient
	logger *zap.Logger
}

// NewFlutterwaveGateway creates a FlutterwaveGateway. httpClient may be nil.
func NewFlutterwaveGateway(cfg FlutterwaveConfig, httpClient *http.Client, logger *zap.Logger) *FlutterwaveGateway {
	return &FlutterwaveGateway{cfg: cfg, rest: newRestClient(cfg.BaseURL, httpClient), logger: logger}
}

func (g *FlutterwaveGateway) Name() string { return Flutterwave }

type flwChargeRequest struct {
	TxRef       string      `json:"tx_ref"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phone_number"`
}

type flwTransaction struct {
	ID       int64       `json:"id"`
	TxRef    string      `json:"tx_ref"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Status   string      `json:"status"`
}

type flwResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    flwTransaction `json:"data"`
}

// Charge sends an STK push to the client's phone.
func (g *FlutterwaveGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Phone == "" {
		return ChargeResult{}, apperr.Validation("phone", "required for M-Pesa payments")
	}
	var resp flwResponse
	err := g.rest.do(ctx, http.MethodPost, "/v3/charges?type=mpesa", g.cfg.SecretKey, flwChargeRequest{
		TxRef:       req.Reference,
		Amount:      json.Number(req.Amount.String()),
		Currency:    currencyOrKES(req.Currency),
		Email:       req.Email,
		PhoneNumber: req.Phone,
	}, &resp)
	if err != nil {
		return ChargeResult{}, apperr.External(Flutterwave, err)
	}
	if resp.Status != "success" {
		return ChargeResult{}, apperr.External(Flutterwave, errors.New(resp.Message))
	}
	g.logger.Info("flutterwave charge started", zap.String("reference", req.Reference), zap.Int64("id", resp.Data.ID))
	return ChargeResult{Reference: req.Reference, GatewayTransactionID: strconv.FormatInt(resp.Data.ID, 10)}, nil
}

// Refund refunds amount of the transaction.
func (g *FlutterwaveGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if req.GatewayTransactionID == "" {
		return RefundResult{}, apperr.Validation("gateway_transaction_id", "missing for flutterwave refund")
	}
	var resp flwResponse
	path := fmt.Sprintf("/v3/transactions/%s/refund", req.GatewayTransactionID)
	body := map[string]json.Number{"amount": json.Number(req.Amount.String())}
	if err := g.rest.do(ctx, http.MethodPost, path, g.cfg.SecretKey, body, &resp); err != nil {
		return RefundResult{}, apperr.External(Flutterwave, err)
	}
	if resp.Status != "success" {
		return RefundResult{}, apperr.External(Flutterwave, errors.New(resp.Message))
	}
	return RefundResult{RefundReference: strconv.FormatInt(resp.Data.ID, 10), Status: resp.Data.Status}, nil
}

type flwWebhook struct {
	Event string         `json:"event"`
	Data  flwTransaction `json:"data"`
}

// ParseCallback checks the verif-hash header, then re-reads the transaction
// from the API so the amount is never taken from the webhook body alone.
func (g *FlutterwaveGateway) ParseCallback(ctx context.Context, cb Callback) (CallbackEvent, error) {
	hash := cb.Header.Get("verif-hash")
	if g.cfg.SecretHash == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(g.cfg.SecretHash)) != 1 {
		return CallbackEvent{}, apperr.Validation("verif-hash", "webhook signature mismatch")
	}

	var hook flwWebhook
	if err := json.Unmarshal(cb.Body, &hook); err != nil {
		return CallbackEvent{}, apperr.Validation("body", "malformed webhook payload")
	}
	if hook.Event != "charge.completed" {
		return CallbackEvent{Reference: hook.Data.TxRef}, nil
	}

	var resp flwResponse
	path := fmt.Sprintf("/v3/transactions/%d/verify", hook.Data.ID)
	if err := g.rest.do(ctx, http.MethodGet, path, g.cfg.SecretKey, nil, &resp); err != nil {
		return CallbackEvent{}, apperr.External(Flutterwave, err)
	}
	amount, err := models.ParseMoney(resp.Data.Amount.String())
	if err != nil {
		return CallbackEvent{}, apperr.External(Flutterwave, err)
	}
	return CallbackEvent{
		Reference:            resp.Data.TxRef,
		GatewayTransactionID: strconv.FormatInt(resp.Data.ID, 10),
		Amount:               amount,
		Success:              resp.Data.Status == "successful",
		Final:                true,
	}, nil
}

func currencyOrKES(c string) string {
	if c == "" {
		return "KES"
	}
	return c
}
