package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientSendSetsOriginAndPayloadHeaders(t *testing.T) {
	var gotOrigin, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrigin = r.Header.Get(OriginHeader)
		gotUA = r.Header.Get(PayloadHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient("10.0.0.1:9000", 100, 10, nil, nil)
	peer := strings.TrimPrefix(ts.URL, "http://")

	_, err := c.Send(context.Background(), peer, "/proposal/created/", []byte(`{"id":1}`))
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:9000", gotOrigin)
	require.NotEmpty(t, gotUA)
}

func TestClientBroadcastIsFireAndForget(t *testing.T) {
	done := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer ts.Close()

	c := NewClient("origin", 100, 10, nil, nil)
	peer := strings.TrimPrefix(ts.URL, "http://")
	c.Broadcast(context.Background(), []string{peer}, "/proposal/response/", []byte("x"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached peer")
	}
}
