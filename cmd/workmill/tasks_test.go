package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/workmill/workmill/internal/batch"
	"github.com/workmill/workmill/internal/config"
	"github.com/workmill/workmill/internal/httpclient"
)

func TestHTTPTaskExtractsValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user": {"id": 7}}`)
	}))
	defer srv.Close()

	cfg := &config.Config{Timeout: 2 * time.Second, Concurrency: 1}
	file := &batch.File{Tasks: []batch.Spec{{Name: "user", URL: srv.URL, Extract: "user.id"}}}
	if err := file.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	tasks, err := buildTasks(cfg, file, httpclient.NewClient(cfg.Timeout))
	if err != nil {
		t.Fatalf("buildTasks: %v", err)
	}

	value, err := tasks[0](context.Background(), 0, "user")
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if value != "7" {
		t.Fatalf("expected extracted id 7, got %q", value)
	}
}

func TestHTTPTaskMissingExtractPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	file := &batch.File{Tasks: []batch.Spec{{Name: "user", URL: srv.URL, Extract: "user.id"}}}
	if err := file.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	tasks, err := buildTasks(&config.Config{Timeout: time.Second}, file, httpclient.NewClient(time.Second))
	if err != nil {
		t.Fatalf("buildTasks: %v", err)
	}

	if _, err := tasks[0](context.Background(), 0, "user"); err == nil {
		t.Fatal("expected error for unmatched extract path")
	}
}

func TestHTTPTaskStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	file := &batch.File{Tasks: []batch.Spec{{Name: "edge", URL: srv.URL}}}
	if err := file.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	tasks, err := buildTasks(&config.Config{Timeout: time.Second}, file, httpclient.NewClient(time.Second))
	if err != nil {
		t.Fatalf("buildTasks: %v", err)
	}

	_, err = tasks[0](context.Background(), 0, "edge")
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("wrong status: %d", statusErr.StatusCode)
	}
}

func TestRetriesRecoverFlakyEndpoint(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	cfg := &config.Config{Timeout: 2 * time.Second, Retries: 3}
	file := &batch.File{Tasks: []batch.Spec{{Name: "flaky", URL: srv.URL, Extract: "ok"}}}
	if err := file.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	tasks, err := buildTasks(cfg, file, httpclient.NewClient(cfg.Timeout))
	if err != nil {
		t.Fatalf("buildTasks: %v", err)
	}

	value, err := tasks[0](context.Background(), 0, "flaky")
	if err != nil {
		t.Fatalf("expected retries to succeed: %v", err)
	}
	if value != "true" {
		t.Fatalf("expected extracted value true, got %q", value)
	}
	if atomic.LoadInt64(&hits) != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestRetryPolicyClassification(t *testing.T) {
	policy := newRetryPolicy(2)

	if policy.ShouldRetry(&httpclient.StatusError{StatusCode: http.StatusNotFound}) {
		t.Fatal("4xx must not be retried")
	}
	if !policy.ShouldRetry(&httpclient.StatusError{StatusCode: http.StatusTooManyRequests}) {
		t.Fatal("429 must be retried")
	}
	if !policy.ShouldRetry(&httpclient.StatusError{StatusCode: http.StatusInternalServerError}) {
		t.Fatal("5xx must be retried")
	}
	if policy.ShouldRetry(context.Canceled) {
		t.Fatal("context cancellation must not be retried")
	}
	if d := policy.DelayFunc(1, nil); d < baseRetryDelay || d > baseRetryDelay+baseRetryDelay/2 {
		t.Fatalf("first backoff out of range: %s", d)
	}
}
