// REST CLIENT FOR BINANCE USDⓈ-M FUTURES
// RESTY ONLY, NO INTERNAL RETRY
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"futuresbot/src/utils"
)

// -----------------------------
// ENDPOINTS
// -----------------------------
const (
	ServerTimePath = "/fapi/v1/time"
	OrderPath      = "/fapi/v1/order"

	apiKeyHeader = "X-MBX-APIKEY"
)

// -----------------------------
// AUTHENTICATED CLIENT
// -----------------------------

// Client signs and executes requests. Apart from the optional cached
// server-time offset it keeps no per-call state, so one Client may serve
// several strategy sessions.
type Client struct {
	apiKey    string
	apiSecret string
	cfg       Config
	http      *resty.Client
	logger    *logrus.Entry
	now       func() time.Time

	offsetMu       sync.Mutex
	offset         time.Duration
	offsetSyncedAt time.Time
}

func NewClient(apiKey, apiSecret string, cfg Config, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "binance_futures_client")

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
		log.Warnf("No base URL provided, using default: %s", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	defaults := DefaultConfig()
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = defaults.RecvWindow
	}
	if cfg.TimeSyncTimeout <= 0 {
		cfg.TimeSyncTimeout = defaults.TimeSyncTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}

	// Retry count stays 0; callers decide whether to repeat a request.
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(log)

	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		cfg:       cfg,
		http:      httpClient,
		logger:    log,
		now:       time.Now,
	}
}

func signQuery(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func supportedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
		return true
	}
	return false
}

// -----------------------------
// SIGNED REQUESTS
// -----------------------------

// Send signs params and executes the request, returning the raw JSON body.
// The params are not modified; timestamp, recvWindow and signature are
// appended to a copy in that order.
func (c *Client) Send(ctx context.Context, method, path string, params *Params) ([]byte, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !supportedMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	offset := c.serverTimeOffset(ctx)

	signed := params.Clone()
	signed.Add("timestamp", strconv.FormatInt(c.now().Add(offset).UnixMilli(), 10))
	signed.Add("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	query := signed.Encode()
	target := path + "?" + query + "&signature=" + signQuery(query, c.apiSecret)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	log := c.logger.WithFields(logrus.Fields{"method": method, "path": path})
	log.WithField("query", query).Debug("API request")

	// resty query params would re-sort the signed string, so it goes into the URL as is.
	resp, err := c.http.R().SetContext(reqCtx).Execute(method, target)
	if err != nil {
		log.WithError(err).Debug("API request failed")
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}

	body := resp.Body()
	log.WithFields(logrus.Fields{
		"status": resp.StatusCode(),
		"body":   string(body),
	}).Debug("API response")

	if !resp.IsSuccess() {
		return nil, newStatusError(method, path, resp.StatusCode(), body)
	}
	return body, nil
}

// SendJSON is Send followed by decoding the body into out.
func (c *Client) SendJSON(ctx context.Context, method, path string, params *Params, out any) error {
	body, err := c.Send(ctx, method, path, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w. raw=%s", method, path, err, string(body))
	}
	return nil
}

// -----------------------------
// SERVER TIME
// -----------------------------

type serverTimeResponse struct {
	ServerTime *int64 `json:"serverTime"`
}

// ServerTime queries the unsigned time endpoint.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.TimeSyncTimeout)
	defer cancel()

	resp, err := c.http.R().SetContext(reqCtx).Get(ServerTimePath)
	if err != nil {
		return time.Time{}, &TransportError{Method: http.MethodGet, Path: ServerTimePath, Err: err}
	}
	if !resp.IsSuccess() {
		return time.Time{}, newStatusError(http.MethodGet, ServerTimePath, resp.StatusCode(), resp.Body())
	}

	var out serverTimeResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return time.Time{}, fmt.Errorf("decode server time: %w", err)
	}
	if out.ServerTime == nil {
		return time.Time{}, errors.New("server time missing from response")
	}
	return time.UnixMilli(*out.ServerTime), nil
}

// serverTimeOffset returns serverTime - localTime. A failed fetch falls back
// to the last known value (0 when never synced).
func (c *Client) serverTimeOffset(ctx context.Context) time.Duration {
	if c.cfg.TimeSyncInterval > 0 {
		c.offsetMu.Lock()
		defer c.offsetMu.Unlock()
		if !c.offsetSyncedAt.IsZero() && c.now().Sub(c.offsetSyncedAt) < c.cfg.TimeSyncInterval {
			return c.offset
		}
	}

	serverTime, err := c.ServerTime(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Could not fetch server time offset")
		if c.cfg.TimeSyncInterval > 0 {
			return c.offset
		}
		return 0
	}

	offset := utils.FromMillis(serverTime.UnixMilli() - c.now().UnixMilli())
	if c.cfg.TimeSyncInterval > 0 {
		c.offset = offset
		c.offsetSyncedAt = c.now()
	}
	return offset
}
