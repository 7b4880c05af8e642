package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthzAlwaysOK(t *testing.T) {
	srv := NewServer(Config{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHandlerReceivesOriginAndDecodedPayload(t *testing.T) {
	var gotOrigin string
	var gotPayload []byte
	srv := NewServer(Config{Handlers: map[string]Handler{
		"/proposal/created/": func(origin string, payload []byte) ([]byte, error) {
			gotOrigin = origin
			gotPayload = payload
			return []byte(`{"ok":true}`), nil
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/proposal/created/", nil)
	req.Header.Set(OriginHeader, "10.0.0.5:9000")
	req.Header.Set(PayloadHeader, "eyJpZCI6MX0=") // base64("{"id":1}")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "10.0.0.5:9000", gotOrigin)
	require.Equal(t, `{"id":1}`, string(gotPayload))
	require.Equal(t, `{"ok":true}`, rec.Body.String())
}

func TestHandlerErrorStillReturns200WithErrorBody(t *testing.T) {
	srv := NewServer(Config{Handlers: map[string]Handler{
		"/block/query/": func(origin string, payload []byte) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/block/query/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "boom")
}
