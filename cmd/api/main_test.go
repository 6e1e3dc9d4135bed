package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/roofing-lead-agent/internal/config"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

func TestSetupMetricsExposesChatCounters(t *testing.T) {
	handler, chatMetrics := setupMetrics()
	require.NotNil(t, handler)
	require.NotNil(t, chatMetrics)

	chatMetrics.ObserveTurn("qualification", 4, false, time.Second)
	chatMetrics.ObserveLeadSaved("created")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "roofing_chat_turns_total")
	assert.Contains(t, body, "roofing_leads_saved_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestRunServesAndShutsDown(t *testing.T) {
	cfg := &appconfig.Config{
		Port:           "0",
		LeadsStore:     appconfig.StoreMemory,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.New("error"), ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	base := "http://" + addr

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Post(base+"/api/chat", "application/json", strings.NewReader(`{"message":"My roof is leaking into the attic"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chat map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	_ = resp.Body.Close()
	assert.Equal(t, true, chat["isEmergency"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
