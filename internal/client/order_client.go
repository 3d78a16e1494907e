package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPOrderClient talks to the order service REST API. It is a thin
// transport wrapper: timestamps are normalized and a logical sequence
// is assigned here, all reconciliation happens in the synchronizer.
type HTTPOrderClient struct {
	Address string
	client  *http.Client
}

func NewHTTPOrderClient(address string) (*HTTPOrderClient, error) {
	return &HTTPOrderClient{
		Address: address,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type tradeDetailsResponse struct {
	TradeID            string  `json:"trade_id"`
	OrderID            string  `json:"order_id"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	CreateTime         string  `json:"create_time"`
	UpdatedAt          string  `json:"updated_at"`
	PaidAt             string  `json:"paid_at"`
	CancellationReason string  `json:"cancellation_reason"`
	AppealReason       string  `json:"appeal_reason"`
	AppealedBy         string  `json:"appealed_by"`
	AmountFiat         float64 `json:"amount_fiat"`
	AmountCrypto       float64 `json:"amount_crypto"`
	Currency           string  `json:"currency"`
	CryptoRate         float64 `json:"crypto_rate"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPOrderClient) FetchTradeDetails(ctx context.Context, orderID, tradeID string) (*domain.TradeSnapshot, error) {
	url := fmt.Sprintf("%s/orders/%s/trades/%s", h.Address, orderID, tradeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	response, err := h.client.Do(req)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, responseError(response.StatusCode, responseBodyBytes)
	}

	var details tradeDetailsResponse
	if err := json.Unmarshal(responseBodyBytes, &details); err != nil {
		return nil, err
	}
	return toSnapshot(&details, time.Now()), nil
}

// toSnapshot normalizes a trade details payload. The sequence is the
// logical clock: server update timestamp when present and newer,
// local receipt time otherwise.
func toSnapshot(details *tradeDetailsResponse, receivedAt time.Time) *domain.TradeSnapshot {
	snapshot := &domain.TradeSnapshot{
		TradeID:            details.TradeID,
		OrderID:            details.OrderID,
		Status:             domain.TradeStatus(details.Status),
		CreatedAt:          deadline.ResolveCreatedAt(details.CreatedAt, details.CreateTime, receivedAt),
		CancellationReason: details.CancellationReason,
		AppealReason:       details.AppealReason,
		AppealedBy:         details.AppealedBy,
		AmountFiat:         details.AmountFiat,
		AmountCrypto:       details.AmountCrypto,
		Currency:           details.Currency,
		CryptoRate:         details.CryptoRate,
		Source:             domain.SourcePoll,
		ReceivedAt:         receivedAt,
	}
	snapshot.Sequence = receivedAt.UnixMilli()
	if updatedAt, err := time.Parse(time.RFC3339, details.UpdatedAt); err == nil && updatedAt.After(receivedAt) {
		snapshot.Sequence = updatedAt.UnixMilli()
	}
	if paidAt, err := time.Parse(time.RFC3339, details.PaidAt); err == nil {
		snapshot.PaidAt = &paidAt
	}
	return snapshot
}

func (h *HTTPOrderClient) MarkPaid(ctx context.Context, tradeID string) error {
	return h.postAction(ctx, fmt.Sprintf("%s/trades/%s/pay", h.Address, tradeID), nil)
}

func (h *HTTPOrderClient) Release(ctx context.Context, tradeID string) error {
	return h.postAction(ctx, fmt.Sprintf("%s/trades/%s/release", h.Address, tradeID), nil)
}

func (h *HTTPOrderClient) Appeal(ctx context.Context, tradeID, reason string) error {
	body := map[string]string{"reason": reason}
	return h.postAction(ctx, fmt.Sprintf("%s/trades/%s/appeal", h.Address, tradeID), body)
}

func (h *HTTPOrderClient) CancelAppeal(ctx context.Context, tradeID string) error {
	return h.postAction(ctx, fmt.Sprintf("%s/trades/%s/cancel-appeal", h.Address, tradeID), nil)
}

func (h *HTTPOrderClient) postAction(ctx context.Context, url string, body any) error {
	var requestBody io.Reader
	if body != nil {
		requestBodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		requestBody = bytes.NewBuffer(requestBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, requestBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// Actions are retried after timeouts; the request id lets the
	// order service deduplicate them.
	req.Header.Set("X-Request-Id", uuid.NewString())

	response, err := h.client.Do(req)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return responseError(response.StatusCode, responseBodyBytes)
}

func responseError(statusCode int, body []byte) error {
	message := http.StatusText(statusCode)
	var errResponse errorResponse
	if err := json.Unmarshal(body, &errResponse); err == nil && errResponse.Error != "" {
		message = errResponse.Error
	}

	switch {
	case statusCode == http.StatusNotFound:
		return status.Error(codes.NotFound, message)
	case statusCode == http.StatusConflict:
		return status.Error(codes.FailedPrecondition, message)
	case statusCode >= 500:
		return status.Error(codes.Unavailable, message)
	default:
		return status.Error(codes.Unknown, message)
	}
}
