// Package legacypush forwards company updates to the legacy system's adapter.
package legacypush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgprofile/internal/company/models"
	"orgprofile/pkg/platform/circuit"
)

const defaultEnrollStatus = "OPTED_OUT"

// ErrIncomplete is returned when a record lacks the membership fields the adapter requires.
var ErrIncomplete = errors.New("membership status and subscription type are required")

// Pusher sends a company to the legacy system.
type Pusher interface {
	Push(ctx context.Context, code string, c models.Company) error
}

// Request is the adapter's company payload.
type Request struct {
	RequestID                   uuid.UUID       `json:"request_id"`
	EnglishName                 string          `json:"english_name"`
	LocalName                   *string         `json:"local_name,omitempty"`
	BusinessLicenseNumber       *string         `json:"business_license_number,omitempty"`
	BusinessLicenseExpiration   *time.Time      `json:"business_license_expiration,omitempty"`
	Address                     models.Address  `json:"address"`
	Telephone                   string          `json:"telephone"`
	Email                       string          `json:"email"`
	BillingAddress              *models.Address `json:"billing_address,omitempty"`
	VATNumber                   *string         `json:"vat_number,omitempty"`
	EnrollStatus                string          `json:"smd_enroll_status"`
	MembershipStatus            string          `json:"membership_status"`
	SubscriptionType            string          `json:"subscription_type"`
	PrimaryClassificationCode   *string         `json:"primary_industry_classification_code,omitempty"`
	SecondaryClassificationCode *string         `json:"secondary_industry_classification_code,omitempty"`
}

// NewRequest maps a company onto the adapter payload.
func NewRequest(c models.Company) (Request, error) {
	if c.MembershipStatus == nil || c.SubscriptionType == nil {
		return Request{}, ErrIncomplete
	}
	enroll := defaultEnrollStatus
	if c.EnrollStatus != nil {
		enroll = *c.EnrollStatus
	}
	return Request{
		RequestID:                   uuid.New(),
		EnglishName:                 c.Name,
		LocalName:                   c.LocalName,
		BusinessLicenseNumber:       c.BusinessLicenseNumber,
		BusinessLicenseExpiration:   c.BusinessLicenseExpiration,
		Address:                     c.Address,
		Telephone:                   c.Telephone,
		Email:                       c.Email,
		BillingAddress:              c.BillingAddress,
		VATNumber:                   c.VATNumber,
		EnrollStatus:                enroll,
		MembershipStatus:            string(*c.MembershipStatus),
		SubscriptionType:            *c.SubscriptionType,
		PrimaryClassificationCode:   c.PrimaryClassificationCode,
		SecondaryClassificationCode: c.SecondaryClassificationCode,
	}, nil
}

// HTTPClient PUTs companies to {base}/companies/{code}.
type HTTPClient struct {
	base    string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(*HTTPClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = client
	}
}

func NewHTTPClient(base string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		base:    strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: circuit.New("legacy-push", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Push(ctx context.Context, code string, company models.Company) error {
	req, err := NewRequest(company)
	if err != nil {
		return err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode legacy request: %w", err)
	}

	err = c.send(ctx, code, body)
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "legacy push circuit opened",
				"event", "legacy_push_circuit_opened",
				"log_type", "ops",
			)
		}
		return err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "legacy push circuit closed",
			"event", "legacy_push_circuit_closed",
			"log_type", "ops",
		)
	}
	return nil
}

// Healthy reports whether recent pushes have been succeeding.
func (c *HTTPClient) Healthy() bool {
	return !c.breaker.IsOpen()
}

func (c *HTTPClient) send(ctx context.Context, code string, body []byte) error {
	endpoint := c.base + "/companies/" + url.PathEscape(code)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build legacy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("push company %s: %w", code, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push company %s: adapter returned %d", code, resp.StatusCode)
	}
	return nil
}
