package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orderflow/settlement/internal/payment/domain"
)

// Client talks to the payment provider's REST API. Only the create-intent
// call matters to settlement; the provider's hosted checkout handles the
// rest. Signature verification of inbound webhooks lives upstream.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CreateIntent(ctx context.Context, req domain.IntentRequest) (domain.Intent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.Intent{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return domain.Intent{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.Intent{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Intent{}, fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	var out domain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Intent{}, err
	}
	if out.ID == "" || out.ClientSecret == "" {
		return domain.Intent{}, fmt.Errorf("provider response missing intent id or client secret")
	}
	return out, nil
}
