// Package sheets mirrors the ledger into a Google Sheet. Every sync clears
// the target range and rewrites all rows, so the sheet is a read-only copy.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"autofint/internal/core"
	"autofint/internal/export"
)

const (
	DefaultSheetName  = "Transaksi"
	defaultAttempts   = 3
	defaultRetryDelay = 60 * time.Second
)

// Config selects the spreadsheet and the credentials. Service account
// credentials win over OAuth when both are set.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

// valuesAPI is the subset of the Sheets values API the mirror needs.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type Mirror struct {
	api           valuesAPI
	spreadsheetID string
	sheetName     string
	attempts      uint
	retryDelay    time.Duration
}

// New creates a Mirror backed by the Google Sheets API.
func New(ctx context.Context, cfg Config) (*Mirror, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newMirror(serviceValues{svc: svc}, cfg), nil
}

func newMirror(api valuesAPI, cfg Config) *Mirror {
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	return &Mirror{
		api:           api,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		attempts:      defaultAttempts,
		retryDelay:    defaultRetryDelay,
	}
}

// Sync replaces the sheet contents with txs, header first.
func (m *Mirror) Sync(ctx context.Context, txs []core.Transaction) error {
	clearRange := fmt.Sprintf("%s!A:G", m.sheetName)
	if err := m.withRetry(ctx, func() error {
		return m.api.Clear(ctx, m.spreadsheetID, clearRange)
	}); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(txs)+1)
	values = append(values, toRow(export.Header))
	for _, t := range txs {
		values = append(values, toRow(export.Record(t)))
	}

	writeRange := fmt.Sprintf("%s!A1:G%d", m.sheetName, len(values))
	if err := m.withRetry(ctx, func() error {
		return m.api.Update(ctx, m.spreadsheetID, writeRange, values)
	}); err != nil {
		return fmt.Errorf("write %s: %w", writeRange, err)
	}

	slog.InfoContext(ctx, "Ledger mirrored to Google Sheets",
		"spreadsheet_id", m.spreadsheetID,
		"sheet", m.sheetName,
		"rows", len(txs))
	return nil
}

// withRetry retries fn only when the API answers 429.
func (m *Mirror) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests && ctx.Err() == nil {
				slog.WarnContext(ctx, "Google Sheets rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Context(ctx),
		retry.Attempts(m.attempts),
		retry.Delay(m.retryDelay),
		retry.LastErrorOnly(true),
	)
}

func toRow(fields []string) []any {
	row := make([]any, len(fields))
	for i, f := range fields {
		row[i] = f
	}
	return row
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// newSheetsService authenticates with a service account (inline JSON or
// file) or, failing that, an OAuth client plus a saved token.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	saJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	saFile := strings.TrimSpace(cfg.ServiceAccountFile)

	switch {
	case saJSON != "" || saFile != "":
		credentialsJSON := []byte(saJSON)
		if saJSON == "" {
			b, err := os.ReadFile(saFile)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
			credentialsJSON = b
		}
		slog.InfoContext(ctx, "Using service account credentials", "credentials_size", len(credentialsJSON))
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case cfg.OAuthClientFile != "" && cfg.OAuthTokenFile != "":
		client, err := oauthClient(ctx, cfg.OAuthClientFile, cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth token credentials", "token_file", cfg.OAuthTokenFile)
		return gsheet.NewService(ctx, goption.WithHTTPClient(client))
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE)")
	}
}

func oauthClient(ctx context.Context, clientFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	// The token source refreshes through the pooled transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return oauthCfg.Client(ctx, tok), nil
}

// LoadToken reads an OAuth token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
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
