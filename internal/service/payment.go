package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/vitrine/internal/clock"
	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
	"github.com/shopspring/decimal"
)

// Gateway is the subset of the payment provider used by the bot.
type Gateway interface {
	CreateCharge(ctx context.Context, product domain.Product, payer domain.Payer) (*domain.Charge, error)
	GetChargeStatus(ctx context.Context, chargeID string) (*domain.ChargeStatus, error)
	DeleteCharge(ctx context.Context, chargeID string) error
	ListCharges(ctx context.Context, status string, offset, limit int) (*ChargePage, error)
}

type ChargePage struct {
	Charges []domain.ChargeStatus
	HasMore bool
}

// AsaasClient talks to the Asaas v3 REST API.
type AsaasClient struct {
	baseURL    string
	apiKey     string
	clock      clock.Clock
	httpClient *http.Client
}

func NewAsaasClient(baseURL, apiKey string, clk clock.Clock) *AsaasClient {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &AsaasClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		clock:      clk,
		httpClient: &http.Client{Timeout: config.GatewayTimeout},
	}
}

type asaasPayment struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Value             decimal.Decimal `json:"value"`
	Description       string          `json:"description"`
	ExternalReference string          `json:"externalReference"`
	DueDate           string          `json:"dueDate"`
	PaymentDate       string          `json:"paymentDate"`
	ClientPaymentDate string          `json:"clientPaymentDate"`
}

func (p asaasPayment) status() domain.ChargeStatus {
	st := domain.ChargeStatus{
		ChargeID:          p.ID,
		Status:            p.Status,
		Value:             p.Value,
		ExternalReference: p.ExternalReference,
	}
	for _, raw := range []string{p.PaymentDate, p.ClientPaymentDate} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.DateOnly, raw); err == nil {
			st.PaidAt = &t
			break
		}
	}
	return st
}

type asaasError struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// CreateCustomer registers an anonymous customer for the payer. Asaas requires
// a CPF for PIX charges, so a random valid one is generated per customer.
func (c *AsaasClient) CreateCustomer(ctx context.Context, payer domain.Payer) (string, error) {
	name := strings.TrimSpace(payer.FirstName + " " + payer.LastName)
	if name == "" {
		name = "Cliente " + strconv.FormatInt(payer.UserID, 10)
	}

	payload := map[string]interface{}{
		"name":                 name,
		"cpfCnpj":              RandomCPF(),
		"notificationDisabled": true,
		"externalReference":    strconv.FormatInt(payer.UserID, 10),
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/customers", payload, &result); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("create customer: %w: empty customer id", domain.ErrGateway)
	}
	return result.ID, nil
}

// CreateCharge creates a PIX charge due tomorrow and fetches its QR code. When
// the QR code cannot be fetched the charge is deleted again, so a failed call
// never leaves an open charge behind.
func (c *AsaasClient) CreateCharge(ctx context.Context, product domain.Product, payer domain.Payer) (*domain.Charge, error) {
	customerID, err := c.CreateCustomer(ctx, payer)
	if err != nil {
		return nil, err
	}

	dueDate := c.clock.Now().AddDate(0, 0, config.ChargeDueDays).Format(time.DateOnly)
	payload := map[string]interface{}{
		"customer":          customerID,
		"billingType":       "PIX",
		"dueDate":           dueDate,
		"value":             product.Price.InexactFloat64(),
		"description":       "Pagamento para: " + product.Name,
		"externalReference": fmt.Sprintf("%d:%s", payer.UserID, product.Code),
	}

	var payment asaasPayment
	if err := c.do(ctx, http.MethodPost, "/payments", payload, &payment); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	if payment.ID == "" {
		return nil, fmt.Errorf("create charge: %w: empty payment id", domain.ErrGateway)
	}

	var pix struct {
		EncodedImage string `json:"encodedImage"`
		Payload      string `json:"payload"`
	}
	if err := c.do(ctx, http.MethodGet, "/payments/"+payment.ID+"/pixQrCode", nil, &pix); err != nil {
		c.discardCharge(ctx, payment.ID)
		return nil, fmt.Errorf("get pix qr code: %w", err)
	}

	image, err := base64.StdEncoding.DecodeString(pix.EncodedImage)
	if err != nil {
		c.discardCharge(ctx, payment.ID)
		return nil, fmt.Errorf("decode pix qr code: %w: %v", domain.ErrGateway, err)
	}

	value := payment.Value
	if value.IsZero() {
		value = product.Price
	}

	return &domain.Charge{
		ChargeID:   payment.ID,
		PixPayload: pix.Payload,
		QRImage:    image,
		Value:      value,
		DueDate:    dueDate,
	}, nil
}

// discardCharge deletes a charge that could not be handed to the payer. It
// still runs when the request context was cancelled.
func (c *AsaasClient) discardCharge(ctx context.Context, chargeID string) {
	if err := c.DeleteCharge(context.WithoutCancel(ctx), chargeID); err != nil {
		slog.Error("delete unusable charge", "error", err, "charge_id", chargeID)
	}
}

func (c *AsaasClient) GetChargeStatus(ctx context.Context, chargeID string) (*domain.ChargeStatus, error) {
	var payment asaasPayment
	if err := c.do(ctx, http.MethodGet, "/payments/"+chargeID, nil, &payment); err != nil {
		return nil, fmt.Errorf("get charge status: %w", err)
	}
	st := payment.status()
	if st.ChargeID == "" {
		st.ChargeID = chargeID
	}
	return &st, nil
}

func (c *AsaasClient) DeleteCharge(ctx context.Context, chargeID string) error {
	var result struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/payments/"+chargeID, nil, &result); err != nil {
		return fmt.Errorf("delete charge: %w", err)
	}
	if !result.Deleted {
		return fmt.Errorf("delete charge %s: %w: not deleted", chargeID, domain.ErrGateway)
	}
	return nil
}

// ListCharges returns one page of charges, optionally filtered by status.
func (c *AsaasClient) ListCharges(ctx context.Context, status string, offset, limit int) (*ChargePage, error) {
	path := fmt.Sprintf("/payments?offset=%d&limit=%d", offset, limit)
	if status != "" {
		path += "&status=" + status
	}

	var result struct {
		HasMore bool           `json:"hasMore"`
		Data    []asaasPayment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}

	page := &ChargePage{HasMore: result.HasMore}
	for _, p := range result.Data {
		page.Charges = append(page.Charges, p.status())
	}
	return page, nil
}

// do sends one API request. Every failure wraps domain.ErrGateway; a 404 also
// wraps domain.ErrChargeNotFound.
func (c *AsaasClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "vitrine")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGateway, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", domain.ErrGateway, domain.ErrChargeNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", domain.ErrGateway, resp.StatusCode, describeError(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", domain.ErrGateway, err)
	}
	return nil
}

func describeError(body []byte) string {
	var apiErr asaasError
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Errors) > 0 {
		parts := make([]string, 0, len(apiErr.Errors))
		for _, e := range apiErr.Errors {
			parts = append(parts, e.Description)
		}
		return strings.Join(parts, "; ")
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// RandomCPF returns an 11-digit CPF with valid check digits.
func RandomCPF() string {
	digits := make([]int, 0, 11)
	for i := 0; i < 9; i++ {
		digits = append(digits, rand.IntN(9)+1)
	}
	digits = append(digits, cpfCheckDigit(digits))
	digits = append(digits, cpfCheckDigit(digits))

	var sb strings.Builder
	for _, d := range digits {
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}

func cpfCheckDigit(digits []int) int {
	weight := len(digits) + 1
	sum := 0
	for i, d := range digits {
		sum += d * (weight - i)
	}
	check := 11 - sum%11
	if check >= 10 {
		return 0
	}
	return check
}

// ValidCPF reports whether cpf is 11 digits with correct check digits.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}
	digits := make([]int, 11)
	for i, r := range cpf {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	return cpfCheckDigit(digits[:9]) == digits[9] && cpfCheckDigit(digits[:10]) == digits[10]
}

// referenceUser extracts the user id from an externalReference written by
// CreateCharge ("<userId>:<productCode>").
func referenceUser(ref string) (int64, bool) {
	head, _, found := strings.Cut(ref, ":")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// IsGatewayError reports whether err came from the payment provider.
func IsGatewayError(err error) bool {
	return errors.Is(err, domain.ErrGateway)
}
