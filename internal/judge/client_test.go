package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientCreateBatch(t *testing.T) {
	var gotPath string
	var gotBody batchCreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if key := r.Header.Get("X-RapidAPI-Key"); key != "secret" {
			t.Errorf("expected api key header, got %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"token":"tok-a"},{"token":"tok-b"}]`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	tokens, err := client.CreateBatch(context.Background(), []BatchItem{
		{SourceCode: "print(3)", LanguageID: 71, Stdin: "1 2", ExpectedOutput: "3"},
		{SourceCode: "print(3)", LanguageID: 71, Stdin: "2 2", ExpectedOutput: "4"},
	})
	if err != nil {
		t.Fatalf("CreateBatch returned error: %v", err)
	}

	if gotPath != "/submissions/batch" {
		t.Errorf("expected /submissions/batch, got %s", gotPath)
	}
	if len(gotBody.Submissions) != 2 || gotBody.Submissions[0].LanguageID != 71 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if len(tokens) != 2 || tokens[0] != "tok-a" || tokens[1] != "tok-b" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
}

func TestHTTPClientGetBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tokens"); got != "tok-a,tok-b" {
			t.Errorf("expected tokens=tok-a,tok-b, got %q", got)
		}
		if got := r.URL.Query().Get("fields"); got != "*" {
			t.Errorf("expected fields=*, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"submissions":[
			{"token":"tok-a","status":{"id":3,"description":"Accepted"},"stdout":"3","time":"0.01","memory":1000},
			{"token":"tok-b","status":{"id":4},"stdout":"5","stderr":null,"compile_output":null,"time":null,"memory":null}
		]}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	results, err := client.GetBatch(context.Background(), []string{"tok-a", "tok-b"})
	if err != nil {
		t.Fatalf("GetBatch returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Accepted() || results[0].Time != "0.01" || results[0].Memory != 1000 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	// Null fields decode to zero values.
	if results[1].Status.ID != 4 || results[1].Stderr != "" || results[1].Memory != 0 {
		t.Errorf("unexpected second result: %+v", results[1])
	}
	if results[1].Terminal() != true {
		t.Error("status 4 must be terminal")
	}
}

func TestHTTPClientRateLimitedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	_, err = client.CreateBatch(context.Background(), []BatchItem{{LanguageID: 71}})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsRateLimited(err) {
		t.Errorf("expected IsRateLimited, got %v", err)
	}

	_, err = client.GetBatch(context.Background(), []string{"tok-a"})
	if !IsRateLimited(err) {
		t.Errorf("expected IsRateLimited for GetBatch, got %v", err)
	}
}

func TestHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(ClientConfig{}); err == nil {
		t.Fatal("expected an error for missing baseURL")
	}
}
