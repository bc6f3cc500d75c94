package parim

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/model"
	"shift-sync-backend/internal/store"
)

const dataExportsEndpoint = "/api/data_exports"

// maxAuditBody caps request/response bodies in the audit log.
const maxAuditBody = 4096

// UpstreamError reports a transport failure or non-success status from
// the Parim API. A call that fails returns no records at all.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parim request to %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("parim request to %s failed with status %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// CallLogger records one audit row per upstream request.
type CallLogger interface {
	LogUpstreamCall(ctx context.Context, entry model.UpstreamCallLog) error
}

// Client talks to the Parim API. Each request is signed with a fresh
// nonce and logged to the audit trail whether it succeeds or not.
type Client struct {
	cfg    *config.ParimConfig
	client *http.Client
	audit  CallLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a Parim API client.
func NewClient(cfg *config.ParimConfig, audit CallLogger, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// FetchShifts retrieves all shift records whose start falls after
// windowStart and whose end falls before windowEnd. The call is
// all-or-nothing: on any failure no records are returned.
func (c *Client) FetchShifts(ctx context.Context, windowStart, windowEnd time.Time) ([]store.RawShift, error) {
	params := url.Values{}
	params.Set("start[after]", windowStart.Format(time.RFC3339))
	params.Set("end[before]", windowEnd.Format(time.RFC3339))

	body, err := c.get(ctx, dataExportsEndpoint, params)
	if err != nil {
		return nil, err
	}

	// Decode into raw messages first so each record's full payload can be
	// stored opaquely alongside the named fields.
	var rawRecords []json.RawMessage
	if err := json.Unmarshal(body, &rawRecords); err != nil {
		return nil, &UpstreamError{Endpoint: dataExportsEndpoint, Err: fmt.Errorf("unexpected response shape: %w", err)}
	}

	shifts := make([]store.RawShift, 0, len(rawRecords))
	for _, raw := range rawRecords {
		var shift store.RawShift
		if err := json.Unmarshal(raw, &shift); err != nil {
			return nil, &UpstreamError{Endpoint: dataExportsEndpoint, Err: fmt.Errorf("malformed shift record: %w", err)}
		}
		shift.Raw = raw
		shifts = append(shifts, shift)
	}
	return shifts, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.cfg.BaseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.logger.Info("making parim request", "endpoint", endpoint, "params", params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	c.setAuthHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logCall(ctx, endpoint, params.Encode(), "", 0)
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logCall(ctx, endpoint, params.Encode(), "", resp.StatusCode)
		return nil, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logCall(ctx, endpoint, params.Encode(), string(body), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("parim request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	c.logger.Info("parim request successful", "endpoint", endpoint, "status", resp.StatusCode)
	return body, nil
}

// setAuthHeaders signs the request. The signature covers the timestamp
// and a per-call random nonce: sha1(privateKey:timestamp:nonce).
func (c *Client) setAuthHeaders(req *http.Request) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := newNonce()

	sum := sha1.Sum([]byte(c.cfg.PrivateKey + ":" + timestamp + ":" + nonce))

	req.Header.Set("x-auth-parim-key", c.cfg.PublicKey)
	req.Header.Set("x-auth-parim-timestamp", timestamp)
	req.Header.Set("x-auth-parim-nonce", nonce)
	req.Header.Set("x-auth-parim-signature", hex.EncodeToString(sum[:]))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.BasicAuth != "" {
		req.Header.Set("Authorization", "Basic "+c.cfg.BasicAuth)
	}
}

func (c *Client) logCall(ctx context.Context, endpoint, request, response string, status int) {
	entry := model.UpstreamCallLog{
		Endpoint:     endpoint,
		RequestData:  truncate(request, maxAuditBody),
		ResponseData: truncate(response, maxAuditBody),
		StatusCode:   status,
	}
	if err := c.audit.LogUpstreamCall(ctx, entry); err != nil {
		// The audit row is best-effort; losing it must not fail the call.
		c.logger.Warn("failed to write upstream audit log", "endpoint", endpoint, "error", err)
	}
}

// newNonce returns 16 random bytes as 32 hex characters.
func newNonce() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
