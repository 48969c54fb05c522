package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"halya/internal/core"
	"halya/internal/store"
)

// Config selects the spreadsheet and the tabs holding the two tables.
type Config struct {
	SpreadsheetID   string
	ResidentsSheet  string // default "residents"
	PaymentsSheet   string // default "payments"
	CredentialsJSON string
	CredentialsFile string
}

// Client reads residents and payments from a Google spreadsheet whose
// tabs mirror the hosted tables (header row, one record per row).
type Client struct {
	values         valuesGetter
	spreadsheetID  string
	residentsSheet string
	paymentsSheet  string
}

// valuesGetter is the single Sheets call the client needs.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type apiValues struct {
	svc *gsheet.Service
}

func (a apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

var _ store.Store = (*Client)(nil)

// New creates a Sheets client with service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("missing spreadsheet id: %w", store.ErrNotConfigured)
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(apiValues{svc: svc}, cfg), nil
}

func newClient(v valuesGetter, cfg Config) *Client {
	residents := strings.TrimSpace(cfg.ResidentsSheet)
	if residents == "" {
		residents = store.TableResidents
	}
	payments := strings.TrimSpace(cfg.PaymentsSheet)
	if payments == "" {
		payments = store.TablePayments
	}
	return &Client{
		values:         v,
		spreadsheetID:  cfg.SpreadsheetID,
		residentsSheet: residents,
		paymentsSheet:  payments,
	}
}

// newSheetsService initializes a read-only Sheets Service using Service
// Account credentials, inline JSON first, then a file path.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if cfg.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) AlleyValues(ctx context.Context) ([]string, error) {
	residents, err := c.readResidents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(residents))
	for _, r := range residents {
		out = append(out, r.Alley)
	}
	sortStrings(out)
	return out, nil
}

func (c *Client) ResidentsByAlley(ctx context.Context, alley string) ([]core.Resident, error) {
	residents, err := c.readResidents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Resident, 0)
	for _, r := range residents {
		if r.Alley == alley {
			out = append(out, r)
		}
	}
	core.SortResidents(out)
	return out, nil
}

func (c *Client) Resident(ctx context.Context, residentID string) (core.Resident, error) {
	residents, err := c.readResidents(ctx)
	if err != nil {
		return core.Resident{}, err
	}
	for _, r := range residents {
		if r.ResidentID == residentID {
			return r, nil
		}
	}
	return core.Resident{}, core.ErrResidentNotFound
}

func (c *Client) PaymentsByResident(ctx context.Context, residentID string) ([]core.Payment, error) {
	rng := c.paymentsSheet + "!A:Z"
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	payments, err := parsePayments(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	out := make([]core.Payment, 0)
	for _, p := range payments {
		if p.ResidentID == residentID {
			out = append(out, p)
		}
	}
	core.SortPayments(out)
	return out, nil
}

func (c *Client) readResidents(ctx context.Context) ([]core.Resident, error) {
	rng := c.residentsSheet + "!A:Z"
	values, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	residents, err := parseResidents(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	return residents, nil
}
