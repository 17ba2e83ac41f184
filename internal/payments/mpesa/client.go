package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL points at the Daraja sandbox.
const DefaultBaseURL = "https://sandbox.safaricom.co.ke"

// providerZone is the timezone the provider validates timestamps in.
var providerZone = time.FixedZone("EAT", 3*60*60)

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mpesa %s returned status %d: %s", e.Op, e.Status, e.Body)
}

// Client wraps the provider's HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a provider client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

type oauthResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// FetchToken performs the client-credentials grant and returns the token and its lifetime.
func (c *Client) FetchToken(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	var out oauthResponse
	if err := c.do(req, "oauth", &out); err != nil {
		return "", 0, err
	}
	if out.AccessToken == "" {
		return "", 0, errors.New("mpesa oauth: empty access token")
	}
	secs, err := strconv.Atoi(out.ExpiresIn.String())
	if err != nil {
		return "", 0, fmt.Errorf("mpesa oauth: expires_in %q: %w", out.ExpiresIn, err)
	}
	return out.AccessToken, time.Duration(secs) * time.Second, nil
}

// STKPushRequest is the processrequest payload.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the provider's synchronous answer.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// NewSTKPushRequest fills the provider fields for a payment of amount from phone.
func (c *Client) NewSTKPushRequest(phone string, amount int64, reference string, at time.Time) STKPushRequest {
	ts := at.In(providerZone).Format("20060102150405")
	return STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackBaseURL + "/mpesa-callback",
		AccountReference:  reference,
		TransactionDesc:   "POS Payment",
	}
}

// STKPush submits a push request with the given bearer token.
func (c *Client) STKPush(ctx context.Context, token string, payload STKPushRequest) (STKPushResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return STKPushResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return STKPushResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	var out STKPushResponse
	if err := c.do(req, "stkpush", &out); err != nil {
		return STKPushResponse{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, op string, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("mpesa %s: decode response: %w", op, err)
	}
	return nil
}

// Password is Base64(shortcode ‖ passkey ‖ timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// retry runs fn up to attempts times with a fixed delay between tries.
// Context cancellation stops the loop.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
