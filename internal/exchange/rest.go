package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/time/rate"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

const (
	orderEndpoint   = "/fapi/v1/order"
	accountEndpoint = "/fapi/v2/account"

	apiKeyHeader = "X-MBX-APIKEY"
)

// RestClient is the signed REST client for the futures order endpoints.
// Order placement sits on the latency-critical path, everything here keeps
// allocations and round trips minimal.
type RestClient struct {
	httpClient *http.Client
	apiKey     string
	secretKey  string
	baseURL    string
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewRestClient builds a client against the given base URL. The limiter
// keeps order submissions under the venue's per-second weight budget.
func NewRestClient(apiKey, secretKey, baseURL string) (*RestClient, error) {
	if apiKey == "" || secretKey == "" {
		return nil, exception.ErrExchangeNoCredentials
	}
	return &RestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		now:        time.Now,
	}, nil
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	UpdateTime    int64  `json:"updateTime"`
}

// PlaceMarketOrder submits a market order and returns the acknowledged
// result.
func (c *RestClient) PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, quantity decimal.Decimal) (*model.OrderResult, error) {
	params := []param{
		{"symbol", symbol},
		{"side", sideParam(side)},
		{"type", "MARKET"},
		{"quantity", quantity.String()},
		{"newClientOrderId", uuid.NewString()},
	}
	return c.submitOrder(ctx, params)
}

// PlaceLimitOrder submits a good-till-cancel limit order.
func (c *RestClient) PlaceLimitOrder(ctx context.Context, symbol string, side model.Side, price, quantity decimal.Decimal) (*model.OrderResult, error) {
	params := []param{
		{"symbol", symbol},
		{"side", sideParam(side)},
		{"type", "LIMIT"},
		{"timeInForce", "GTC"},
		{"price", price.String()},
		{"quantity", quantity.String()},
		{"newClientOrderId", uuid.NewString()},
	}
	return c.submitOrder(ctx, params)
}

// CancelOrder cancels an open order by venue order ID.
func (c *RestClient) CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.OrderResult, error) {
	params := []param{
		{"symbol", symbol},
		{"orderId", strconv.FormatInt(orderID, 10)},
	}
	query := buildSignedQuery(params, c.secretKey, c.now())
	return c.doOrderRequest(ctx, http.MethodDelete, orderEndpoint+"?"+query, "")
}

// AccountInfo fetches the raw account snapshot.
func (c *RestClient) AccountInfo(ctx context.Context) (json.RawMessage, error) {
	query := buildSignedQuery(nil, c.secretKey, c.now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+accountEndpoint+"?"+query, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build account request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "account request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read account response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, exception.ErrExchangeBadStatus.
			With("status", resp.StatusCode).
			With("body", string(body))
	}
	return body, nil
}

func (c *RestClient) submitOrder(ctx context.Context, params []param) (*model.OrderResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	query := buildSignedQuery(params, c.secretKey, c.now())
	return c.doOrderRequest(ctx, http.MethodPost, orderEndpoint, query)
}

func (c *RestClient) doOrderRequest(ctx context.Context, method, pathAndQuery, body string) (*model.OrderResult, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathAndQuery, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build order request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "order request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read order response")
	}
	if resp.StatusCode != http.StatusOK {
		logs.Errorf("order request failed: status=%d body=%s", resp.StatusCode, respBody)
		return nil, exception.ErrExchangeOrderRejected.
			With("status", resp.StatusCode).
			With("body", string(respBody))
	}

	var parsed orderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return parsed.toResult()
}

func (r *orderResponse) toResult() (*model.OrderResult, error) {
	// market fills report the average price, limit acks only the order
	// price
	priceStr := r.AvgPrice
	if priceStr == "" || priceStr == "0" {
		priceStr = r.Price
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, exception.ErrExchangeBadPayload.With("field", "price").With("value", priceStr)
	}
	executed, err := decimal.NewFromString(r.ExecutedQty)
	if err != nil {
		return nil, exception.ErrExchangeBadPayload.With("field", "executedQty").With("value", r.ExecutedQty)
	}

	side := model.SideUnknown
	switch r.Side {
	case "BUY":
		side = model.SideBuy
	case "SELL":
		side = model.SideSell
	}

	return &model.OrderResult{
		OrderID:        r.OrderID,
		ClientOrderID:  r.ClientOrderID,
		Symbol:         r.Symbol,
		Side:           side,
		Status:         model.OrderStatus(r.Status),
		FillPrice:      price,
		FilledQuantity: executed,
		Timestamp:      time.UnixMilli(r.UpdateTime),
	}, nil
}

func sideParam(side model.Side) string {
	if side == model.SideSell {
		return "SELL"
	}
	return "BUY"
}
