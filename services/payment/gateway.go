// Package payment talks to the payment gateways. The booking workflow only
// sees the Gateway interface: start a charge, refund it, and turn a gateway
// callback into a confirmed amount plus a success flag.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"venuebook/models"
)

// Gateway names.
const (
	Flutterwave = "flutterwave"
	Pesapal     = "pesapal"
	Stripe      = "stripe"
)

type ChargeRequest struct {
	BookingID   string
	Reference   string
	Amount      models.Money
	Currency    string
	Phone       string
	Email       string
	Description string
	CallbackURL string
}

type ChargeResult struct {
	Reference            string
	GatewayTransactionID string
	// RedirectURL is set when the client must finish payment on a hosted page.
	RedirectURL string
	// ClientSecret is set for card payments confirmed in the browser.
	ClientSecret string
}

type RefundRequest struct {
	Reference            string
	GatewayTransactionID string
	Amount               models.Money
	Reason               string
}

type RefundResult struct {
	RefundReference string
	Status          string
}

// Callback is the raw gateway notification as received over HTTP.
type Callback struct {
	Header http.Header
	Query  url.Values
	Body   []byte
}

// CallbackEvent is a verified payment outcome.
type CallbackEvent struct {
	Reference            string
	GatewayTransactionID string
	Amount               models.Money
	Success              bool
	// Final is false for intermediate notifications that carry no outcome.
	Final bool
}

// Gateway is one payment provider. Transport failures come back as
// apperr.ExternalServiceError.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	// ParseCallback authenticates a notification and reports its outcome.
	ParseCallback(ctx context.Context, cb Callback) (CallbackEvent, error)
}

// Registry looks gateways up by name.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry registers every non-nil gateway under its Name.
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		if g != nil {
			r.gateways[g.Name()] = g
		}
	}
	return r
}

// Get returns the named gateway.
func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("payment gateway %q is not configured", name)
	}
	return g, nil
}

// Names lists the configured gateways.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for n := range r.gateways {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
