package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dispatcher delivers alert webhooks with retry logic and a circuit breaker
type Dispatcher struct {
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		circuitBreaker: NewCircuitBreaker(),
	}
}

// SendAlert delivers one alert payload to a webhook, retrying per the
// webhook's retry configuration. The returned AlertLog records every attempt
// regardless of outcome.
func (d *Dispatcher) SendAlert(
	ctx context.Context,
	webhook model.Webhook,
	payload AlertPayloadData,
	correlationID string,
) (*model.AlertLog, error) {
	if payload.Metadata == nil {
		payload.Metadata = map[string]interface{}{}
	}
	payload.Metadata["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	alertLog := &model.AlertLog{
		ID:            primitive.NewObjectID(),
		CorrelationID: correlationID,
		WebhookURL:    webhook.URL,
		Attempts:      make([]model.AlertAttempt, 0),
		FinalStatus:   "retrying",
		CreatedAt:     time.Now().UTC(),
	}

	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping webhook delivery",
			"correlation_id", correlationID,
			"webhook_url", webhook.URL,
			"circuit_state", d.circuitBreaker.State().String(),
		)
		alertLog.FinalStatus = "failed"
		alertLog.CompletedAt = time.Now().UTC()
		return alertLog, fmt.Errorf("circuit breaker is open")
	}

	retryStrategy := NewRetryStrategy(webhook.RetryConfig)

	for attempt := 1; attempt <= retryStrategy.MaxAttempts(); attempt++ {
		attemptResult, err := d.deliver(ctx, webhook, payload)
		alertLog.Attempts = append(alertLog.Attempts, attemptResult)

		if err == nil && attemptResult.StatusCode >= 200 && attemptResult.StatusCode < 300 {
			slog.Info("Webhook delivered",
				"correlation_id", correlationID,
				"webhook_url", webhook.URL,
				"attempt", attempt,
				"status_code", attemptResult.StatusCode,
			)
			alertLog.FinalStatus = "delivered"
			alertLog.CompletedAt = time.Now().UTC()
			d.circuitBreaker.RecordSuccess()
			return alertLog, nil
		}

		if !retryStrategy.ShouldRetry(attempt, attemptResult.StatusCode, err) {
			slog.Error("Webhook delivery failed, not retrying",
				"correlation_id", correlationID,
				"webhook_url", webhook.URL,
				"attempt", attempt,
				"status_code", attemptResult.StatusCode,
				"error", attemptResult.Error,
			)
			alertLog.FinalStatus = "failed"
			alertLog.CompletedAt = time.Now().UTC()
			d.circuitBreaker.RecordFailure()
			return alertLog, fmt.Errorf("webhook delivery failed after %d attempts", attempt)
		}

		if attempt < retryStrategy.MaxAttempts() {
			delay := retryStrategy.Delay(attempt)
			slog.Warn("Webhook delivery failed, retrying",
				"correlation_id", correlationID,
				"webhook_url", webhook.URL,
				"attempt", attempt,
				"next_retry_ms", delay.Milliseconds(),
				"error", attemptResult.Error,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				alertLog.FinalStatus = "failed"
				alertLog.CompletedAt = time.Now().UTC()
				return alertLog, ctx.Err()
			}
		}
	}

	slog.Error("Webhook delivery failed after all retries",
		"correlation_id", correlationID,
		"webhook_url", webhook.URL,
		"attempts", retryStrategy.MaxAttempts(),
	)
	alertLog.FinalStatus = "failed"
	alertLog.CompletedAt = time.Now().UTC()
	d.circuitBreaker.RecordFailure()
	return alertLog, fmt.Errorf("webhook delivery failed after %d attempts", retryStrategy.MaxAttempts())
}

// deliver performs a single webhook delivery attempt
func (d *Dispatcher) deliver(
	ctx context.Context,
	webhook model.Webhook,
	payload AlertPayloadData,
) (model.AlertAttempt, error) {
	start := time.Now()
	attempt := model.AlertAttempt{
		Timestamp: start.UTC(),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		attempt.Error = fmt.Sprintf("Failed to marshal payload: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}

	req, err := http.NewRequestWithContext(ctx, webhook.Method, webhook.URL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		attempt.Error = fmt.Sprintf("Failed to create request: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		attempt.Error = fmt.Sprintf("Request failed: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}
	defer resp.Body.Close()

	// Keep only the first KB of the response for the log
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "error", err)
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ResponseBody = string(bodyBytes)
	attempt.DurationMs = time.Since(start).Milliseconds()

	// A received response is not a delivery error; the status code carries
	// the outcome so the retry policy can distinguish 4xx from 5xx.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		attempt.Error = fmt.Sprintf("Webhook returned status %d", resp.StatusCode)
	}

	return attempt, nil
}

// GetCircuitBreakerState returns the current circuit breaker state
func (d *Dispatcher) GetCircuitBreakerState() string {
	return d.circuitBreaker.State().String()
}
