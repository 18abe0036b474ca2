package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apifeed/apifeed/fetch"
	"github.com/apifeed/apifeed/llm"
)

func TestConnector_BatchProcess_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"path": %q}`, r.URL.Path)
	}))
	defer server.Close()

	model := &stubModel{}
	c := newTestConnector(t, server.URL, model)

	reqs := []fetch.Request{fetchReq("/ok1"), fetchReq("/bad"), fetchReq("/ok2")}
	result, err := c.BatchProcess(context.Background(), reqs, "compare these", 0)
	if err != nil {
		t.Fatalf("BatchProcess failed: %v", err)
	}

	if result.SuccessfulEndpoints != 2 {
		t.Errorf("Expected 2 successful endpoints, got %d", result.SuccessfulEndpoints)
	}
	if result.FailedEndpoints != 1 {
		t.Errorf("Expected 1 failed endpoint, got %d", result.FailedEndpoints)
	}
	if len(result.Failures) != 1 || result.Failures[0].Endpoint != "/bad" {
		t.Errorf("Expected /bad recorded as failure, got %+v", result.Failures)
	}
	if result.Failures[0].Error == "" {
		t.Error("Expected failure message populated")
	}
	if result.Analysis != "stub analysis" {
		t.Errorf("Expected model analysis, got %q", result.Analysis)
	}
	if result.DataSummary == nil || result.DataSummary.Kind != "dictionary" {
		t.Errorf("Expected dictionary summary of combined data, got %+v", result.DataSummary)
	}

	calls := model.calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 model call, got %d", len(calls))
	}
	content := calls[0].Messages[0].Content
	if !strings.Contains(content, "/ok1") || !strings.Contains(content, "/ok2") {
		t.Errorf("Expected successful endpoints keyed in prompt, got %q", content)
	}
	if strings.Contains(content, `"/bad"`) {
		t.Errorf("Expected failed endpoint absent from combined data, got %q", content)
	}
}

func TestConnector_BatchProcess_AllFailStillCallsModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	model := &stubModel{}
	c := newTestConnector(t, server.URL, model)

	result, err := c.BatchProcess(context.Background(), []fetch.Request{fetchReq("/a"), fetchReq("/b")}, "analyze", 0)
	if err != nil {
		t.Fatalf("BatchProcess failed: %v", err)
	}

	if result.SuccessfulEndpoints != 0 {
		t.Errorf("Expected 0 successes, got %d", result.SuccessfulEndpoints)
	}
	if result.FailedEndpoints != 2 {
		t.Errorf("Expected 2 failures, got %d", result.FailedEndpoints)
	}
	if len(model.calls()) != 1 {
		t.Errorf("Expected model consulted despite total failure, got %d calls", len(model.calls()))
	}
}

func TestConnector_BatchProcess_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	model := &stubModel{}
	c := newTestConnector(t, server.URL, model)

	var reqs []fetch.Request
	for i := 0; i < 8; i++ {
		reqs = append(reqs, fetchReq(fmt.Sprintf("/endpoint-%d", i)))
	}

	result, err := c.BatchProcess(context.Background(), reqs, "analyze", 2)
	if err != nil {
		t.Fatalf("BatchProcess failed: %v", err)
	}
	if result.SuccessfulEndpoints != 8 {
		t.Errorf("Expected all 8 endpoints fetched, got %d", result.SuccessfulEndpoints)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("Expected at most 2 concurrent fetches, observed %d", got)
	}
}

func TestConnector_BatchProcess_ModelFailureFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	model := &stubModel{reply: func(*llm.Request) (*llm.Response, error) {
		return nil, llm.NewProviderError("model down", 503, nil)
	}}
	c := newTestConnector(t, server.URL, model)

	_, err := c.BatchProcess(context.Background(), []fetch.Request{fetchReq("/a")}, "analyze", 0)
	if err == nil {
		t.Fatal("Expected error when the model call fails, got nil")
	}
	var lerr *llm.Error
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected *llm.Error, got %T", err)
	}
}

func TestConnector_BatchProcess_NoEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no fetches for an empty batch")
	}))
	defer server.Close()

	model := &stubModel{}
	c := newTestConnector(t, server.URL, model)

	result, err := c.BatchProcess(context.Background(), nil, "analyze", 0)
	if err != nil {
		t.Fatalf("BatchProcess failed: %v", err)
	}
	if result.SuccessfulEndpoints != 0 || result.FailedEndpoints != 0 {
		t.Errorf("Expected empty counts, got %d/%d", result.SuccessfulEndpoints, result.FailedEndpoints)
	}
	if len(model.calls()) != 1 {
		t.Errorf("Expected one model call on empty batch, got %d", len(model.calls()))
	}
}
