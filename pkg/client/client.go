package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openlabour/labour-engine/internal/models"
)

// Client is a Go SDK for the labour-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new labour-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// PreparedTransaction is the envelope every write operation returns: an
// unsigned transaction for the caller's wallet plus the ledger handle used to
// report the signature back.
type PreparedTransaction struct {
	TxID                  string `json:"txId"`
	SerializedTransaction string `json:"serializedTransaction"`
	Blockhash             string `json:"blockhash"`
	LastValidBlockHeight  uint64 `json:"lastValidBlockHeight"`
}

// ApplyToProjectRequest asks for an application transaction.
type ApplyToProjectRequest struct {
	WalletAddress string `json:"walletAddress"`
	ProjectPDA    string `json:"projectPda"`
	Description   string `json:"description"`
}

// ApplyToProjectResult is the prepared application transaction.
type ApplyToProjectResult struct {
	PreparedTransaction
	ApplicationPDA string             `json:"applicationPda"`
	Application    models.Application `json:"application"`
}

// ApplyToProject requests an unsigned apply_to_project transaction
func (c *Client) ApplyToProject(ctx context.Context, req ApplyToProjectRequest) (*ApplyToProjectResult, error) {
	var result ApplyToProjectResult
	if err := c.postJSON(ctx, "/api/apply-to-project", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApproveApplicationRequest asks for an approval transaction.
type ApproveApplicationRequest struct {
	WalletAddress    string `json:"walletAddress"`
	ApplicationPDA   string `json:"applicationPda"`
	ProjectPDA       string `json:"projectPda"`
	LabourAccountPDA string `json:"labourAccountPda"`
}

// ApproveApplicationResult is the prepared approval transaction.
type ApproveApplicationResult struct {
	PreparedTransaction
	AssignmentPDA string            `json:"assignmentPda"`
	Assignment    models.Assignment `json:"assignment"`
}

// ApproveApplication requests an unsigned approve_application transaction
func (c *Client) ApproveApplication(ctx context.Context, req ApproveApplicationRequest) (*ApproveApplicationResult, error) {
	var result ApproveApplicationResult
	if err := c.postJSON(ctx, "/api/approve-application", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApproveWorkDayRequest asks for a payout transaction for one verified day.
type ApproveWorkDayRequest struct {
	WalletAddress    string `json:"walletAddress"`
	ProjectPDA       string `json:"projectPda"`
	LabourAccountPDA string `json:"labourAccountPda"`
	DayNumber        int    `json:"dayNumber"`
}

// ApproveWorkDayResult is the prepared payout transaction.
type ApproveWorkDayResult struct {
	PreparedTransaction
	WorkVerificationPDA string `json:"workVerificationPda"`
	LabourTokenAccount  string `json:"labourTokenAccount"`
	TokenAccountCreated bool   `json:"tokenAccountCreated"`
}

// ApproveWorkDay requests an unsigned approve_work_day transaction
func (c *Client) ApproveWorkDay(ctx context.Context, req ApproveWorkDayRequest) (*ApproveWorkDayResult, error) {
	var result ApproveWorkDayResult
	if err := c.postJSON(ctx, "/api/approve-work-day", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RateUserRequest asks for a rating transaction.
type RateUserRequest struct {
	RaterWallet   string `json:"raterWallet"`
	SubjectWallet string `json:"subjectWallet"`
	Rating        int    `json:"rating"`
	Context       string `json:"context"`
}

// RateUserResult is the prepared rating transaction.
type RateUserResult struct {
	PreparedTransaction
	UserAccountPDA string `json:"userAccountPda"`
	ReviewPDA      string `json:"reviewPda"`
}

// RateUser requests an unsigned rate_user transaction
func (c *Client) RateUser(ctx context.Context, req RateUserRequest) (*RateUserResult, error) {
	var result RateUserResult
	if err := c.postJSON(ctx, "/api/rate-user", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MintTokenRequest asks for a faucet transaction.
type MintTokenRequest struct {
	WalletAddress string  `json:"walletAddress"`
	Amount        float64 `json:"amount"`
}

// MintTokenResult is the prepared faucet transaction.
type MintTokenResult struct {
	PreparedTransaction
	TokenAccount        string `json:"tokenAccount"`
	TokenAccountCreated bool   `json:"tokenAccountCreated"`
}

// MintToken requests an unsigned mint_token transaction
func (c *Client) MintToken(ctx context.Context, req MintTokenRequest) (*MintTokenResult, error) {
	var result MintTokenResult
	if err := c.postJSON(ctx, "/api/mint-token", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProject retrieves one project by derived address
func (c *Client) GetProject(ctx context.Context, pda string) (*models.KeyedProject, error) {
	var result struct {
		Project *models.KeyedProject `json:"project"`
	}
	if err := c.getJSON(ctx, "/api/projects/"+url.PathEscape(pda), &result); err != nil {
		return nil, err
	}
	return result.Project, nil
}

// ListProjects retrieves all projects, optionally narrowed to one manager
// account address
func (c *Client) ListProjects(ctx context.Context, manager string) ([]models.KeyedProject, error) {
	path := "/api/projects"
	if manager != "" {
		path += "?manager=" + url.QueryEscape(manager)
	}

	var result struct {
		Projects []models.KeyedProject `json:"projects"`
		Total    int                   `json:"total"`
	}
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Projects, nil
}

// GetUser retrieves the user account registered for a wallet
func (c *Client) GetUser(ctx context.Context, wallet string) (*models.KeyedUserAccount, error) {
	var result struct {
		User *models.KeyedUserAccount `json:"user"`
	}
	if err := c.getJSON(ctx, "/api/users/"+url.PathEscape(wallet), &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Balance is a wallet's marketplace-token balance.
type Balance struct {
	Wallet        string  `json:"userPubkey"`
	Mint          string  `json:"mint"`
	Balance       float64 `json:"balance"`
	RawBalance    string  `json:"rawBalance"`
	Decimals      int     `json:"decimals"`
	AccountExists bool    `json:"accountExists"`
}

// GetBalance retrieves a wallet's marketplace-token balance
func (c *Client) GetBalance(ctx context.Context, wallet string) (*Balance, error) {
	var result Balance
	if err := c.getJSON(ctx, "/api/users/"+url.PathEscape(wallet)+"/balance", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSystemState retrieves the singleton marketplace state
func (c *Client) GetSystemState(ctx context.Context) (*models.KeyedSystemState, error) {
	var result struct {
		SystemState *models.KeyedSystemState `json:"systemState"`
	}
	if err := c.getJSON(ctx, "/api/system-state", &result); err != nil {
		return nil, err
	}
	return result.SystemState, nil
}

// GetTransaction retrieves one prepared-transaction ledger record
func (c *Client) GetTransaction(ctx context.Context, id string) (*models.PreparedTransaction, error) {
	var result struct {
		Transaction *models.PreparedTransaction `json:"transaction"`
	}
	if err := c.getJSON(ctx, "/api/transactions/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return result.Transaction, nil
}

// ReportSignature reports the signature a wallet produced for a prepared
// transaction
func (c *Client) ReportSignature(ctx context.Context, id, signature string) (*models.PreparedTransaction, error) {
	req := struct {
		Signature string `json:"signature"`
	}{Signature: signature}

	var result struct {
		Transaction *models.PreparedTransaction `json:"transaction"`
	}
	if err := c.postJSON(ctx, "/api/transactions/"+url.PathEscape(id)+"/signature", req, &result); err != nil {
		return nil, err
	}
	return result.Transaction, nil
}

// SignatureStatus is the on-chain view of a submitted transaction.
type SignatureStatus struct {
	Signature          string                      `json:"signature"`
	Known              bool                        `json:"known"`
	Slot               uint64                      `json:"slot,omitempty"`
	ConfirmationStatus string                      `json:"confirmationStatus,omitempty"`
	Failed             bool                        `json:"failed"`
	Transaction        *models.PreparedTransaction `json:"transaction,omitempty"`
}

// GetSignatureStatus asks the service about a signature's chain status
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var result SignatureStatus
	if err := c.getJSON(ctx, "/api/signatures/"+url.PathEscape(signature)+"/status", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	var result struct{}
	return c.getJSON(ctx, "/health", &result)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.decode(c.doRequest(ctx, http.MethodGet, path, nil), out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.decode(c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body)), out)
}

type rawResult struct {
	body []byte
	err  error
}

func (c *Client) decode(res rawResult, out interface{}) error {
	if res.err != nil {
		return res.err
	}

	// Every response carries the envelope fields next to the payload.
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(res.body, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("API error: %s", envelope.Error)
	}

	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) rawResult {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return rawResult{err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rawResult{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResult{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return rawResult{err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))}
	}

	return rawResult{body: respBody}
}
