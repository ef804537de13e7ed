// Package payment integrates the card-payment gateway: creating payment
// intents at checkout and applying the asynchronous webhook events that
// confirm or fail them.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Intent mirrors the gateway's payment-intent resource; ClientSecret is what
// the storefront UI needs to collect the card.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type Gateway struct {
	HTTP      *http.Client
	BaseURL   string
	SecretKey string
}

func NewGateway(baseURL, secretKey string) *Gateway {
	return &Gateway{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   baseURL,
		SecretKey: secretKey,
	}
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderID string) (*Intent, error) {
	body, _ := json.Marshal(map[string]any{
		"amount":   amount.StringFixed(2),
		"currency": currency,
		"metadata": map[string]string{"order_id": orderID},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)

	res, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway create intent: %s", res.Status)
	}

	var in Intent
	if err := json.NewDecoder(res.Body).Decode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (g *Gateway) RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.BaseURL+"/v1/payment_intents/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)

	res, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway retrieve intent: %s", res.Status)
	}

	var in Intent
	if err := json.NewDecoder(res.Body).Decode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}
