package pinning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadFile(t *testing.T) {
	var gotAuth, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinFileToIPFS" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		gotName = header.Filename
		content, _ := io.ReadAll(file)
		if string(content) != "report body" {
			t.Errorf("unexpected file content: %q", content)
		}

		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "bafy-test"})
	}))
	defer srv.Close()

	p := New("test-jwt", "gateway.example", WithAPIURL(srv.URL))
	url, err := p.UploadFile(context.Background(), "report.pdf", strings.NewReader("report body"))
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if url != "https://gateway.example/ipfs/bafy-test" {
		t.Errorf("unexpected gateway url: %s", url)
	}
	if gotAuth != "Bearer test-jwt" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if !strings.HasPrefix(gotName, "report.pdf-") {
		t.Errorf("stored name should keep the original prefix, got %s", gotName)
	}
}

func TestUploadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinJSONToIPFS" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Metadata map[string]string      `json:"pinataMetadata"`
			Content  map[string]interface{} `json:"pinataContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if !strings.HasSuffix(body.Metadata["name"], "-profile-metadata.json") {
			t.Errorf("unexpected pin name: %s", body.Metadata["name"])
		}
		if body.Content["name"] != "Asha" {
			t.Errorf("content not forwarded: %v", body.Content)
		}
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "bafy-json"})
	}))
	defer srv.Close()

	p := New("test-jwt", "gateway.example", WithAPIURL(srv.URL))
	url, err := p.UploadJSON(context.Background(), "profile", map[string]string{"name": "Asha"})
	if err != nil {
		t.Fatalf("UploadJSON failed: %v", err)
	}
	if url != "https://gateway.example/ipfs/bafy-json" {
		t.Errorf("unexpected gateway url: %s", url)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New("bad-jwt", "gateway.example", WithAPIURL(srv.URL))
	if _, err := p.UploadJSON(context.Background(), "profile", map[string]string{}); err == nil {
		t.Error("expected error on 401 response")
	}

	// Missing hash in an otherwise OK response is still a failure.
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv2.Close()

	p2 := New("jwt", "gateway.example", WithAPIURL(srv2.URL))
	if _, err := p2.UploadFile(context.Background(), "a.txt", strings.NewReader("x")); err == nil {
		t.Error("expected error when response has no hash")
	}
}
