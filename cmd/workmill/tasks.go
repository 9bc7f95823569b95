package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/workmill/workmill/internal/batch"
	"github.com/workmill/workmill/internal/config"
	"github.com/workmill/workmill/internal/httpclient"
	"github.com/workmill/workmill/internal/runner"
)

const (
	maxBodyBytes       = 1 << 20 // response bodies above this are truncated
	maxLoggedBodyBytes = 1024
	baseRetryDelay     = 100 * time.Millisecond
	maxRetryDelay      = 5 * time.Second
)

// httpTask executes one batch spec as a runner task.
type httpTask struct {
	spec    batch.Spec
	builder *httpclient.RequestBuilder
	client  *http.Client
}

// buildTasks turns batch specs into runner tasks, applying retry middleware
// when configured.
func buildTasks(cfg *config.Config, file *batch.File, client *http.Client) ([]runner.Task[string], error) {
	tasks := make([]runner.Task[string], 0, len(file.Tasks))
	for _, spec := range file.Tasks {
		builder, err := httpclient.NewRequestBuilder(spec.Method, spec.URL, spec.Headers, spec.Body)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", spec.Name, err)
		}
		ht := &httpTask{spec: spec, builder: builder, client: client}

		var task runner.Task[string] = ht.run
		if cfg.Retries > 0 {
			task = runner.WithRetry(task, newRetryPolicy(cfg.Retries))
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (t *httpTask) run(ctx context.Context, index int, label string) (string, error) {
	req, err := t.builder.Build(ctx)
	if err != nil {
		return "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		snippet := body
		if len(snippet) > maxLoggedBodyBytes {
			snippet = snippet[:maxLoggedBodyBytes]
		}
		return "", &httpclient.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if t.spec.Extract != "" {
		value, ok := batch.ExtractValue(body, t.spec.Extract)
		if !ok {
			return "", fmt.Errorf("extract path %q matched nothing in response", t.spec.Extract)
		}
		return value, nil
	}
	return resp.Status, nil
}

// jitterSource serializes access to a shared random source for retry jitter.
type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: func(err error) bool {
			if err == nil {
				return false
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}

			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) {
				if statusErr.StatusCode == http.StatusTooManyRequests {
					return true
				}
				return statusErr.StatusCode >= 500
			}

			return true
		},
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}
