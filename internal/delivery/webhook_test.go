package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWebhookPosterSendsContent(t *testing.T) {
	var got webhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewWebhookPoster(srv.Client()).Post(context.Background(), srv.URL, "**Title**\nhttps://arxiv.org/abs/1")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got.Content != "**Title**\nhttps://arxiv.org/abs/1" {
		t.Fatalf("content = %q", got.Content)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestWebhookThrottleRoundTrip(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message": "You are being rate limited.", "retry_after": 0.3, "global": false}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	d := New(NewWebhookPoster(srv.Client()), Policy{MaxRetries: 8, RequestTimeout: 5 * time.Second}, WithSleeper(rec.sleep))
	res := d.Deliver(context.Background(), srv.URL, "hi")
	if !res.OK {
		t.Fatalf("result = %+v, want ok", res)
	}
	if calls.Load() != 3 {
		t.Fatalf("server calls = %d, want 3", calls.Load())
	}
	if len(rec.waits) != 2 || rec.waits[0] != 300*time.Millisecond {
		t.Fatalf("waits = %v, want two 300ms waits", rec.waits)
	}
}

func TestWebhookPosterTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := New(NewWebhookPoster(nil), Policy{MaxRetries: 2, RequestTimeout: 2 * time.Second}).Deliver(context.Background(), url, "x")
	if res.OK || res.Err == nil {
		t.Fatalf("result = %+v, want transport failure", res)
	}
	if res.StatusCode != 0 {
		t.Fatalf("status = %d, want 0", res.StatusCode)
	}
}
