package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go-biz-server/internal/config"

	"go.uber.org/zap"
)

// Client talks to the Daraja API: it fetches an OAuth token and submits
// STK push requests. Built once at startup and injected into the sales
// service.
type Client struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
}

func NewClient(cfg config.MpesaConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// StkPushResult is the provider's acknowledgment of a push request.
type StkPushResult struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushRequest struct {
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

// StkPush normalizes the phone number and asks the provider to prompt the
// customer's device for payment. The outcome arrives later on the callback
// URL keyed by the transaction id.
func (c *Client) StkPush(ctx context.Context, transactionID uint, phone string, amount float64) (*StkPushResult, error) {
	formatted, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	password, timestamp := c.password()
	reqBody := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(math.Round(amount)),
		PartyA:            formatted,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       formatted,
		CallBackURL:       fmt.Sprintf("%s/api/mpesa/callback/%d", c.cfg.CallbackBaseURL, transactionID),
		AccountReference:  fmt.Sprintf("Order-%d", transactionID),
		TransactionDesc:   "Snack Center Payment",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stk push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stk push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("stk push rejected",
			zap.Int("status", resp.StatusCode),
			zap.Uint("transaction_id", transactionID),
			zap.ByteString("body", raw))
		return nil, fmt.Errorf("stk push rejected with status %d", resp.StatusCode)
	}

	var result StkPushResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode stk push response: %w", err)
	}
	if result.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push declined: %s", result.ResponseDescription)
	}

	c.log.Info("stk push accepted",
		zap.Uint("transaction_id", transactionID),
		zap.String("checkout_request_id", result.CheckoutRequestID))
	return &result, nil
}

// accessToken fetches a bearer token with the consumer key/secret. The
// provider re-issues it on every push; no caching here, matching how the
// credential endpoint is billed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}
	return tokenResp.AccessToken, nil
}

// password builds the time-based request password:
// base64(shortcode + passkey + timestamp), timestamp as YYYYMMDDHHMMSS.
func (c *Client) password() (password, timestamp string) {
	timestamp = c.now().Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
	return password, timestamp
}
