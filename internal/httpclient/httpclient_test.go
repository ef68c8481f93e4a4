package httpclient

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingTransportRedactsBotToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := New(Options{Logger: logger})

	resp, err := client.Get(srv.URL + "/bot123:SECRET/getMe?key=abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if strings.Contains(out, "SECRET") || strings.Contains(out, "key=abc") {
		t.Errorf("log leaks credentials: %s", out)
	}
	if !strings.Contains(out, "/bot***/getMe") || !strings.Contains(out, "status=204") {
		t.Errorf("log = %s", out)
	}
}
