package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"
)

var _ adapter.PushPaymentGateway = (*MpesaGateway)(nil)

// Daraja result codes with a specific meaning for us.
const (
	ResultSuccess          = 0
	ResultCancelledByPayer = 1032
	ResultPayerUnreachable = 1037
)

// darajaTimestampZone is the zone Daraja expects the STK timestamp in (EAT).
var darajaTimestampZone = time.FixedZone("EAT", 3*60*60)

// MpesaGateway implements PushPaymentGateway over the Safaricom Daraja
// STK push API using direct HTTP calls.
type MpesaGateway struct {
	cfg    config.MpesaConfig
	client *http.Client
	now    func() time.Time
	log    *zerolog.Logger
	dev    bool

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewMpesaGateway(cfg config.MpesaConfig, client *http.Client, logger *zerolog.Logger, dev bool) *MpesaGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	l := logger.With().Str("component", "MpesaGateway").Logger()
	return &MpesaGateway{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		log:    &l,
		dev:    dev,
	}
}

func (g *MpesaGateway) Name() string { return "mpesa" }

// --- wire types ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
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

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string  `json:"ResponseCode"`
	ResultCode   flexInt `json:"ResultCode"`
	ResultDesc   string  `json:"ResultDesc"`
	ErrorCode    string  `json:"errorCode"`
	ErrorMessage string  `json:"errorMessage"`
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string  `json:"MerchantRequestID"`
			CheckoutRequestID string  `json:"CheckoutRequestID"`
			ResultCode        flexInt `json:"ResultCode"`
			ResultDesc        string  `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// flexInt accepts both 0 and "0"; Daraja is not consistent across endpoints.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("result code %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// --- operations ---

func (g *MpesaGateway) password(at time.Time) (string, string) {
	ts := at.In(darajaTimestampZone).Format("20060102150405")
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.ShortCode + g.cfg.Passkey + ts)), ts
}

// accessToken returns a cached OAuth token, refreshing a minute before expiry.
func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Before(g.tokenExp) {
		return g.token, nil
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	var out tokenResponse
	status, err := g.do(req, &out)
	result := classify(err, status)
	metrics.ObserveGatewayCall(g.Name(), "token", result, time.Since(start))
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || out.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrGatewayRejected, status)
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	g.token = out.AccessToken
	g.tokenExp = g.now().Add(ttl - time.Minute)
	return g.token, nil
}

func (g *MpesaGateway) RequestPush(ctx context.Context, r adapter.PushRequest) (adapter.PushReceipt, error) {
	defer logging.TraceDuration(g.log, "MpesaGateway.RequestPush")()

	token, err := g.accessToken(ctx)
	if err != nil {
		return adapter.PushReceipt{}, err
	}
	pwd, ts := g.password(g.now())
	body := stkPushRequest{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          pwd,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            r.Amount,
		PartyA:            r.Phone,
		PartyB:            g.cfg.ShortCode,
		PhoneNumber:       r.Phone,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  tail(r.Reference, 12),
		TransactionDesc:   head(r.Description, 13),
	}

	start := time.Now()
	var out stkPushResponse
	status, err := g.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, body, &out)
	result := classify(err, status)
	if err == nil && out.ResponseCode != "0" {
		result = "rejected"
	}
	metrics.ObserveGatewayCall(g.Name(), "push", result, time.Since(start))
	if status == http.StatusUnauthorized {
		g.dropToken()
	}

	if err != nil {
		return adapter.PushReceipt{}, err
	}
	if status != http.StatusOK || out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		g.log.Warn().
			Int("http_status", status).
			Str("error_code", out.ErrorCode).
			Str("error", out.ErrorMessage).
			Str("phone", logging.Redact(r.Phone, g.dev)).
			Msg("stk push rejected")
		return adapter.PushReceipt{}, fmt.Errorf("%w: %s%s", domain.ErrGatewayRejected, out.ErrorMessage, out.ResponseDescription)
	}
	return adapter.PushReceipt{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

// QueryStatus asks Daraja about a push. A push the payer has not answered yet
// is reported by Daraja as an error response; it maps to pending.
func (g *MpesaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (adapter.PushQueryResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return adapter.PushQueryResult{}, err
	}
	pwd, ts := g.password(g.now())

	start := time.Now()
	var out stkQueryResponse
	status, err := g.postJSON(ctx, "/mpesa/stkpushquery/v1/query", token, stkQueryRequest{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          pwd,
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}, &out)
	metrics.ObserveGatewayCall(g.Name(), "query", classify(err, status), time.Since(start))
	if status == http.StatusUnauthorized {
		g.dropToken()
	}
	if err != nil {
		return adapter.PushQueryResult{}, err
	}

	if out.ResponseCode != "0" {
		// e.g. 500.001.1001 "The transaction is being processed"
		return adapter.PushQueryResult{Status: adapter.PushStatusPending, ResultDesc: out.ErrorMessage}, nil
	}
	res := adapter.PushQueryResult{ResultCode: int(out.ResultCode), ResultDesc: out.ResultDesc}
	if out.ResultCode == ResultSuccess {
		res.Status = adapter.PushStatusSucceeded
	} else {
		res.Status = adapter.PushStatusFailed
	}
	return res, nil
}

// ParseCallback decodes the Body.stkCallback envelope Daraja posts to CallBackURL.
func (g *MpesaGateway) ParseCallback(body []byte) (adapter.PushCallback, error) {
	return parseStkCallback(body)
}

func parseStkCallback(body []byte) (adapter.PushCallback, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return adapter.PushCallback{}, fmt.Errorf("decode stk callback: %w", err)
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return adapter.PushCallback{}, errors.New("stk callback without CheckoutRequestID")
	}

	out := adapter.PushCallback{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        int(cb.ResultCode),
		ResultDesc:        cb.ResultDesc,
	}
	for _, it := range cb.CallbackMetadata.Item {
		raw := strings.Trim(string(it.Value), `"`)
		switch it.Name {
		case "Amount":
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				out.Amount = int64(f)
			}
		case "MpesaReceiptNumber":
			out.Outcome.ReceiptNumber = raw
		case "PhoneNumber":
			out.Phone = raw
		}
	}

	switch int(cb.ResultCode) {
	case ResultSuccess:
		out.Outcome.Success = true
	case ResultPayerUnreachable:
		out.Outcome.Reason = model.FailureGatewayTimeout
	default:
		out.Outcome.Reason = model.FailurePayerDeclined
	}
	return out, nil
}

// --- transport ---

func (g *MpesaGateway) postJSON(ctx context.Context, path, token string, in, out any) (int, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return g.do(req, out)
}

// do sends req and decodes a JSON body into out whatever the status code;
// Daraja reports business errors as JSON with 4xx/5xx statuses.
func (g *MpesaGateway) do(req *http.Request, out any) (int, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrGatewayRejected, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("%w: undecodable response: %v", domain.ErrGatewayRejected, err)
		}
	}
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classify(err error, status int) string {
	switch {
	case errors.Is(err, domain.ErrGatewayTimeout):
		return "timeout"
	case err != nil:
		return "error"
	case status >= 400:
		return "rejected"
	default:
		return "ok"
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// tail keeps the distinguishing end of a reference.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (g *MpesaGateway) dropToken() {
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
}
