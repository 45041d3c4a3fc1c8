package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecretFromEnv(t *testing.T) {
	t.Setenv("MEMVIEW_SECRET", "  alice:school:tok \n")

	secret, err := SecretFromEnv()
	if err != nil {
		t.Fatalf("SecretFromEnv(): unexpected error: %v", err)
	}
	if secret != "alice:school:tok" {
		t.Errorf("SecretFromEnv(): got %q, want %q", secret, "alice:school:tok")
	}
}

func TestSecretFromEnv_Missing(t *testing.T) {
	t.Setenv("MEMVIEW_SECRET", "")

	_, err := SecretFromEnv()
	if err == nil {
		t.Fatal("SecretFromEnv(): expected error when no secret set, got nil")
	}
}

func TestNewTransport_SendsHeaders(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-token" {
			t.Errorf("Authorization header: got %q, want %q", auth, "Bearer test-token")
		}
		accept := r.Header.Get("Accept")
		if accept != "application/vnd.github.v3+json" {
			t.Errorf("Accept header: got %q, want %q", accept, "application/vnd.github.v3+json")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewTransport("test-token", nil)}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("client.Get(): %v", err)
	}
	resp.Body.Close()
}

func TestNewTransport_KeepsExplicitAccept(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.github.raw" {
			t.Errorf("Accept header: got %q", got)
		}
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewTransport("tok", ts.Client().Transport)}
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set("Accept", "application/vnd.github.raw")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("client.Do(): %v", err)
	}
	resp.Body.Close()

	if req.Header.Get("Authorization") != "" {
		t.Error("transport mutated the caller's request")
	}
}

func TestNewTransport_NoToken(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization header should be absent, got %q", got)
		}
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewTransport("", nil)}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("client.Get(): %v", err)
	}
	resp.Body.Close()
}
