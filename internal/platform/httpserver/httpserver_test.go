package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesOptions(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), WithWriteTimeout(time.Minute))
	assert.Equal(t, time.Minute, srv.WriteTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)

	srv = New(":0", http.NotFoundHandler(), WithWriteTimeout(0))
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, New("127.0.0.1:0", http.NotFoundHandler()), time.Second) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunReportsListenErrors(t *testing.T) {
	err := Run(context.Background(), New("256.0.0.1:bad", http.NotFoundHandler()), time.Second)
	require.Error(t, err)
}
