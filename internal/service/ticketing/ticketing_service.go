// Package ticketing is the client for the ticketing backend that owns the
// raw gate-transaction records. The backend speaks JSON over HTTP with two
// coexisting legacy success conventions; classify collapses both into one
// outcome consumed uniformly by the rest of the pipeline.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"railboard/internal/config"
	"railboard/internal/domain"
	"railboard/pkg/errors"
	"railboard/pkg/logger"
)

const (
	loginPath        = "/login"
	transactionsPath = "/transactions"

	// pageSize is sized to cover the busiest full day of exits in a single
	// call. The backend silently truncates beyond its own hard ceiling, so
	// a day larger than this would under-count; accepted limitation.
	pageSize = 20000

	sortField    = "exit_datetime"
	statusFilter = "SUCCESS"
)

// noDataPattern marks the backend's "query succeeded, no matching rows"
// message. It is a success, not an error.
const noDataPattern = "DATA NOT FOUND"

// authExpiredPatterns are the message fragments the backend uses for a
// rejected or expired token.
var authExpiredPatterns = []string{"TOKEN EXPIRED", "INVALID TOKEN", "SESSION EXPIRED"}

// Client talks to the ticketing backend.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new ticketing client
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.TicketingBaseURL, "/"),
		username: cfg.TicketingUsername,
		password: cfg.TicketingPassword,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	RequestID string `json:"requestId"`
}

type fetchRequest struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	PageSize     int    `json:"pageSize"`
	Sort         string `json:"sort"`
	StatusFilter string `json:"statusFilter"`
	// Unused filter fields the backend requires to be present.
	StationCode string `json:"stationCode"`
	CardType    string `json:"cardType"`
}

// envelope is the backend's response shell. Code and Sts are the two
// legacy success discriminants; either one may be present.
type envelope struct {
	Code    *int                       `json:"code"`
	Sts     string                     `json:"sts"`
	Message string                     `json:"message"`
	Token   string                     `json:"token"`
	Rows    []domain.TransactionRecord `json:"rows"`
	Total   int                        `json:"total"`
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeEmpty
	outcomeFailure
)

// classify maps both legacy success conventions (numeric code == 0, string
// sts == "S") and the known failure messages onto a single outcome.
func classify(env *envelope) (result outcome, authExpired bool) {
	if (env.Code != nil && *env.Code == 0) || env.Sts == "S" {
		return outcomeSuccess, false
	}
	msg := strings.ToUpper(env.Message)
	if strings.Contains(msg, noDataPattern) {
		return outcomeEmpty, false
	}
	for _, pattern := range authExpiredPatterns {
		if strings.Contains(msg, pattern) {
			return outcomeFailure, true
		}
	}
	return outcomeFailure, false
}

// Login authenticates with the fixed service credentials and returns a
// session token.
func (c *Client) Login(ctx context.Context) (string, error) {
	body := loginRequest{
		Username:  c.username,
		Password:  c.password,
		RequestID: requestID(),
	}

	env, err := c.post(ctx, loginPath, "", body)
	if err != nil {
		return "", errors.NewAuthenticationError("login call failed", err)
	}

	result, _ := classify(env)
	if result != outcomeSuccess || env.Token == "" {
		c.logger.WithField("message", env.Message).Error("Login rejected by ticketing backend")
		return "", errors.NewAuthenticationError("login rejected: "+env.Message, nil)
	}

	c.logger.Debug("Ticketing login succeeded")
	return env.Token, nil
}

// FetchTransactions retrieves the raw gate-exit rows for [start, end]
// inclusive. A "no matching rows" response normalizes to an empty slice and
// zero total; every other failure becomes a FetchError tagged with the
// auth-expiry flag.
func (c *Client) FetchTransactions(ctx context.Context, start, end domain.Date, token string) ([]domain.TransactionRecord, int, error) {
	body := fetchRequest{
		StartDate:    start.String(),
		EndDate:      end.String(),
		PageSize:     pageSize,
		Sort:         sortField,
		StatusFilter: statusFilter,
	}

	env, err := c.post(ctx, transactionsPath, token, body)
	if err != nil {
		if fetchErr, ok := err.(*errors.FetchError); ok {
			return nil, 0, fetchErr
		}
		return nil, 0, errors.NewFetchError("transactions call failed", false, err)
	}

	result, authExpired := classify(env)
	switch result {
	case outcomeSuccess:
		c.logger.WithFields(map[string]interface{}{
			"start": start.String(),
			"end":   end.String(),
			"rows":  len(env.Rows),
			"total": env.Total,
		}).Debug("Fetched transactions")
		return env.Rows, env.Total, nil
	case outcomeEmpty:
		return []domain.TransactionRecord{}, 0, nil
	default:
		c.logger.WithFields(map[string]interface{}{
			"message":      env.Message,
			"auth_expired": authExpired,
		}).Warn("Transactions query rejected")
		return nil, 0, errors.NewFetchError("backend rejected query: "+env.Message, authExpired, nil)
	}
}

// post sends a JSON POST and decodes the response envelope. Transport
// failures, non-2xx statuses and non-JSON bodies come back as FetchError.
func (c *Client) post(ctx context.Context, path, token string, body interface{}) (*envelope, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("request failed", false, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewFetchError("failed to read response body", false, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fetchErr := errors.NewFetchError(
			fmt.Sprintf("backend returned status %d", resp.StatusCode),
			resp.StatusCode == http.StatusUnauthorized,
			nil,
		)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	// Gateways in front of the backend answer some failures with HTML
	// error pages; anything non-JSON is a fetch failure, not data.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, errors.NewFetchError("unexpected content type "+contentType, false, nil)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"body_prefix": bodyPrefix(raw),
		}).Error("Failed to parse backend response")
		return nil, errors.NewFetchError("undecodable backend response", false, err)
	}

	return &env, nil
}

// requestID generates the per-login request id the backend expects.
func requestID() string {
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

func bodyPrefix(raw []byte) string {
	if len(raw) > 120 {
		return string(raw[:120]) + "..."
	}
	return string(raw)
}
