package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm-project/backend/logging"

	"github.com/sony/gobreaker"
)

// Email is the payload of the send-email function.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

var ErrNotConfigured = errors.New("functions endpoint is not configured")

// FunctionClient calls the hosted send-email function through a circuit
// breaker.
type FunctionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewFunctionClient(baseURL, apiKey string, client *http.Client) *FunctionClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FunctionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "send-email-cb",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
			},
		}),
	}
}

// Send posts the email to {baseURL}/send-email.
func (c *FunctionClient) Send(ctx context.Context, e Email) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-email", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("send-email returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to invoke send-email: %w", err)
	}
	return nil
}
