package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"raceportal/internal/domain"
)

type pixHTTPProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPProvider returns a PaymentProvider that calls the instant-payment
// API over HTTP. Transport failures and 5xx answers come back wrapping
// ErrPaymentUnavailable so callers can tell retryable errors from terminal
// ones.
func NewHTTPProvider(client *http.Client, baseURL, apiKey string) domain.PaymentProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &pixHTTPProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type createChargeRequest struct {
	AmountCents   int64  `json:"amount_cents"`
	PayerName     string `json:"payer_name"`
	PayerDocument string `json:"payer_document"`
	Reference     string `json:"reference"`
}

type chargeResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	QRPayload string `json:"qr_payload"`
}

func (p *pixHTTPProvider) CreateCharge(ctx context.Context, amountCents int64, payerName, payerDocument, reference string) (*domain.Charge, error) {
	body, err := json.Marshal(createChargeRequest{
		AmountCents:   amountCents,
		PayerName:     payerName,
		PayerDocument: payerDocument,
		Reference:     reference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: provider returned status %d", domain.ErrPaymentUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider rejected charge: status %d", resp.StatusCode)
	}

	var data chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode charge response: %v", domain.ErrPaymentUnavailable, err)
	}
	return &domain.Charge{ExternalID: data.ID, QRPayload: data.QRPayload}, nil
}

func (p *pixHTTPProvider) GetChargeStatus(ctx context.Context, externalID string) (domain.ChargeStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/charges/"+externalID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: provider returned status %d", domain.ErrPaymentUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d for charge %s", resp.StatusCode, externalID)
	}

	var data chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: failed to decode charge response: %v", domain.ErrPaymentUnavailable, err)
	}

	switch strings.ToUpper(data.Status) {
	case string(domain.ChargePending):
		return domain.ChargePending, nil
	case string(domain.ChargePaid):
		return domain.ChargePaid, nil
	case string(domain.ChargeExpired):
		return domain.ChargeExpired, nil
	case string(domain.ChargeCancelled):
		return domain.ChargeCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown charge status %q", domain.ErrPaymentUnavailable, data.Status)
	}
}
