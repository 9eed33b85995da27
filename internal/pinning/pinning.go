package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultAPIURL is the Pinata pinning endpoint.
const DefaultAPIURL = "https://api.pinata.cloud"

// Pinner uploads content to the pinning service and returns gateway URIs.
type Pinner struct {
	apiURL  string
	gateway string
	jwt     string
	http    *http.Client
	now     func() time.Time
}

// Option configures a Pinner.
type Option func(*Pinner)

// WithAPIURL overrides the pinning API endpoint. Used in tests.
func WithAPIURL(url string) Option {
	return func(p *Pinner) { p.apiURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pinner) { p.http = c }
}

// New builds a Pinner. Gateway is the bare hostname of the dedicated gateway
// (e.g. "example.mypinata.cloud"); returned URIs are https gateway URLs.
func New(jwt, gateway string, opts ...Option) *Pinner {
	p := &Pinner{
		apiURL:  DefaultAPIURL,
		gateway: gateway,
		jwt:     jwt,
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL converts a CID into a gateway URL.
func (p *Pinner) URL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", p.gateway, cid)
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (p *Pinner) do(req *http.Request) (string, error) {
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinning request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read pinning response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pinning service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out pinResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode pinning response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pinning service returned no hash")
	}
	return p.URL(out.IpfsHash), nil
}

// UploadFile pins a single file and returns its gateway URL. The stored name
// is suffixed with a timestamp so repeat uploads never collide.
func (p *Pinner) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	unique := fmt.Sprintf("%s-%d", filename, p.now().UnixMilli())

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)

	part, err := mw.CreateFormFile("file", unique)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}

	meta, _ := json.Marshal(map[string]string{"name": unique})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinFileToIPFS", buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return p.do(req)
}

// UploadJSON pins a JSON document and returns its gateway URL. Name is a
// human-readable label for the pin list.
func (p *Pinner) UploadJSON(ctx context.Context, name string, content interface{}) (string, error) {
	unique := fmt.Sprintf("%d-%s-metadata.json", p.now().UnixMilli(), name)

	payload, err := json.Marshal(map[string]interface{}{
		"pinataMetadata": map[string]string{"name": unique},
		"pinataContent":  content,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req)
}
