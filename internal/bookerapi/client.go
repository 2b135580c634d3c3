package bookerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/observability/metrics"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 15 * time.Second
	maxLoggedBody  = 300
)

// Client wraps the two REST calls used by the booking widget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.WidgetMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMetrics counts every call by operation and status.
func WithMetrics(m *metrics.WidgetMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a booking API client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSlots returns the raw bookable start times ("HH:MM") for a provider on a
// date. A non-2xx answer is a *StatusError wrapping ErrUnavailable.
func (c *Client) GetSlots(ctx context.Context, providerID string, date calendar.Date) ([]string, error) {
	if strings.TrimSpace(providerID) == "" {
		c.logger.Warn("booking API: provider id missing from configuration", "date", date.String())
	}

	q := url.Values{}
	q.Set("date", date.String())
	path := fmt.Sprintf("/api/public/slots/%s?%s", url.PathEscape(providerID), q.Encode())

	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	c.observe("get_slots", status, err)
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}
	if status < 200 || status > 299 {
		msg := trimBody(body)
		c.logger.Warn("booking API non-2xx response", "status", status, "path", path, "body", msg)
		return nil, &StatusError{Op: "get slots", Status: status, Body: msg}
	}

	var times []string
	if len(bytes.TrimSpace(body)) == 0 {
		return times, nil
	}
	if err := json.Unmarshal(body, &times); err != nil {
		return nil, fmt.Errorf("get slots: decode response: %w", err)
	}
	return times, nil
}

// CreateAppointment posts a booking. Any completed round trip returns a
// response and a nil error, whatever the status; only transport failures
// return an error.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	if strings.TrimSpace(req.ProviderID) == "" {
		c.logger.Warn("booking API: creating appointment without provider id", "date", req.Date)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/api/appointments/create", req)
	c.observe("create_appointment", status, err)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	resp := &AppointmentResponse{Status: status, Body: body}
	if len(body) > 0 {
		// Best effort: error bodies are {"error": "..."}, success bodies vary.
		_ = json.Unmarshal(body, resp)
	}
	if !resp.Accepted() {
		c.logger.Warn("booking API rejected appointment",
			"status", status,
			"provider_id", req.ProviderID,
			"date", req.Date,
			"start_time", req.StartTime,
			"error", resp.Error,
		)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) observe(op string, status int, err error) {
	label := "none"
	if err == nil {
		label = strconv.Itoa(status)
	}
	c.metrics.ObserveBackendRequest(op, label)
}

func trimBody(b []byte) string {
	msg := strings.TrimSpace(string(b))
	if len(msg) > maxLoggedBody {
		msg = msg[:maxLoggedBody]
	}
	return msg
}
