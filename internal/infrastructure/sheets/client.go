// Package sheets provides the batched range fetcher over the Google Sheets
// v4 REST API. The rest of the core only sees the Fetcher interface; this
// client is the sole place where network I/O happens.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/atlasschools/finboard-go/internal/infrastructure/observability/logging"
	"github.com/atlasschools/finboard-go/pkg/config"
)

// RangeBlock is the raw rows of one fetched cell range. Rows may be ragged:
// a row carries only as many cells as the sheet had values for.
type RangeBlock [][]string

// Fetcher is the batched-read/write capability the core depends on.
type Fetcher interface {
	BatchGet(ctx context.Context, spreadsheetID, sheet string, ranges []string) ([]RangeBlock, error)
	GetRange(ctx context.Context, spreadsheetID, sheet, rangeExpr string) (RangeBlock, error)
	GetCell(ctx context.Context, spreadsheetID, sheet, cellRef string) (string, error)
	UpdateCell(ctx context.Context, spreadsheetID, sheet, cellRef, value string) error
}

const (
	defaultAPIBase   = "https://sheets.googleapis.com"
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	sheetsScope      = "https://www.googleapis.com/auth/spreadsheets"
	jwtBearerGrant   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenExpirySlack = 30 * time.Second
)

// serviceAccount is the subset of a Google service account key file we use.
type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// Client talks to the Sheets API with service-account auth. The bearer token
// is fetched lazily on first use and cached until shortly before expiry.
type Client struct {
	httpClient *http.Client
	apiBase    string
	account    serviceAccount
	logger     *logging.ChanneledLogger

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a client from the configured service-account credentials.
// SHEETS_SA_JSON takes precedence over the key file path.
func NewClient(logger *logging.ChanneledLogger) (*Client, error) {
	raw := config.ServiceAccountJSON
	if raw == "" {
		data, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account key: %w", err)
		}
		raw = string(data)
	}

	var account serviceAccount
	if err := json.Unmarshal([]byte(raw), &account); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = defaultTokenURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.SheetsTimeout},
		apiBase:    defaultAPIBase,
		account:    account,
		logger:     logger,
	}, nil
}

// NewClientWithBase builds a client against an alternate API base and token
// endpoint. Intended for tests against a local HTTP double.
func NewClientWithBase(apiBase, tokenURL string, logger *logging.ChanneledLogger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: config.SheetsTimeout},
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		account: serviceAccount{
			ClientEmail: "test@example.iam.gserviceaccount.com",
			TokenURI:    tokenURL,
		},
		logger: logger,
	}
}

// BatchGet fetches several ranges of one worksheet in a single round trip.
// The returned blocks are in the same order as the requested ranges; a range
// with no values yields an empty block.
func (c *Client) BatchGet(ctx context.Context, spreadsheetID, sheet string, ranges []string) ([]RangeBlock, error) {
	start := time.Now()

	query := url.Values{}
	for _, r := range ranges {
		query.Add("ranges", rangeRef(sheet, r))
	}
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values:batchGet?%s",
		c.apiBase, url.PathEscape(spreadsheetID), query.Encode())

	body, err := c.doGet(ctx, endpoint, spreadsheetID)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ValueRanges []struct {
			Values [][]any `json:"values"`
		} `json:"valueRanges"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransientError{Op: "batchGet", Err: fmt.Errorf("malformed response: %w", err)}
	}

	blocks := make([]RangeBlock, len(ranges))
	for i := range blocks {
		if i < len(parsed.ValueRanges) {
			blocks[i] = toRangeBlock(parsed.ValueRanges[i].Values)
		} else {
			blocks[i] = RangeBlock{}
		}
	}

	if c.logger != nil {
		c.logger.Sheets().Debug("Batch read completed",
			"spreadsheetId", spreadsheetID, "sheet", sheet,
			"ranges", len(ranges), "duration", time.Since(start))
	}
	return blocks, nil
}

// GetRange fetches a single range of a worksheet.
func (c *Client) GetRange(ctx context.Context, spreadsheetID, sheet, rangeExpr string) (RangeBlock, error) {
	blocks, err := c.BatchGet(ctx, spreadsheetID, sheet, []string{rangeExpr})
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}

// GetCell fetches a single cell value. A missing value reads as "".
func (c *Client) GetCell(ctx context.Context, spreadsheetID, sheet, cellRef string) (string, error) {
	block, err := c.GetRange(ctx, spreadsheetID, sheet, cellRef)
	if err != nil {
		return "", err
	}
	if len(block) == 0 || len(block[0]) == 0 {
		return "", nil
	}
	return block[0][0], nil
}

// UpdateCell writes a single cell. Writes go straight to the backing store;
// cache invalidation is the caller's responsibility.
func (c *Client) UpdateCell(ctx context.Context, spreadsheetID, sheet, cellRef, value string) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		c.apiBase, url.PathEscape(spreadsheetID), url.PathEscape(rangeRef(sheet, cellRef)))

	payload, err := json.Marshal(map[string]any{
		"values": [][]string{{value}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode cell update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransientError{Op: "updateCell", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req, spreadsheetID); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Sheets().Info("Cell updated",
			"spreadsheetId", spreadsheetID, "sheet", sheet, "cell", cellRef)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, endpoint, spreadsheetID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Op: "get", Err: err}
	}
	return c.do(req, spreadsheetID)
}

func (c *Client) do(req *http.Request, spreadsheetID string) ([]byte, error) {
	token, err := c.bearerToken(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Op: "read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Resource: "spreadsheet " + spreadsheetID}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{
			Op:  req.Method + " " + req.URL.Path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Treat auth rejections as transient: the cached token may have been
		// revoked and the next call will mint a fresh one.
		c.dropToken()
		return nil, &TransientError{
			Op:  req.Method + " " + req.URL.Path,
			Err: fmt.Errorf("auth rejected with status %d", resp.StatusCode),
		}
	default:
		return nil, fmt.Errorf("sheets: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

// bearerToken returns a cached access token, minting a new one via the
// signed-JWT grant when the cache is empty or near expiry.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		token := c.token
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return "", &TransientError{Op: "token", Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.account.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TransientError{Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransientError{Op: "token", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransientError{Op: "token", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransientError{
			Op:  "token",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return "", &TransientError{Op: "token", Err: fmt.Errorf("malformed token response")}
	}

	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	if c.logger != nil {
		c.logger.Sheets().Debug("Access token refreshed", "expiresIn", tokenResp.ExpiresIn)
	}
	return c.token, nil
}

// signAssertion builds the RS256-signed JWT for the service-account grant.
func (c *Client) signAssertion() (string, error) {
	// The test double skips signing entirely.
	if c.account.PrivateKey == "" {
		return "unsigned-test-assertion", nil
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"scope": sheetsScope,
		"aud":   c.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

func (c *Client) dropToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.tokenMu.Unlock()
}

// rangeRef qualifies a range expression with its worksheet name.
func rangeRef(sheet, rangeExpr string) string {
	if sheet == "" {
		return rangeExpr
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rangeExpr
}

func toRangeBlock(values [][]any) RangeBlock {
	block := make(RangeBlock, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if s, ok := cell.(string); ok {
				cells[j] = s
			} else if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		block[i] = cells
	}
	return block
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
