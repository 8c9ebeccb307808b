package providers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mihdan/recrawler/internal/domain/model"
)

const defaultRetryAfter = 5 * time.Second

func clientOutcome(resp *Response, detail string) model.Outcome {
	msg := detail
	if len(resp.Body) > 0 {
		msg = fmt.Sprintf("%s: %s", detail, truncate(string(resp.Body), 200))
	}
	return model.Outcome{
		Kind:       model.OutcomeClientError,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

func serverOutcome(resp *Response) model.Outcome {
	return model.Outcome{
		Kind:       model.OutcomeNetworkError,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("server error: %s", truncate(string(resp.Body), 200)),
	}
}

func throttledOutcome(resp *Response) model.Outcome {
	retryAfter := extractRetryAfter(resp)
	return model.Outcome{
		Kind:       model.OutcomeThrottled,
		StatusCode: resp.StatusCode,
		RetryAfter: retryAfter,
		Message:    fmt.Sprintf("rate limited by provider, retry after %s", retryAfter),
	}
}

// extractRetryAfter reads the backoff interval from a 429 answer. It tries a
// retry_after field in the JSON body first, then the Retry-After header.
func extractRetryAfter(resp *Response) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}

	if resp.Header != nil {
		if h := resp.Header.Get("Retry-After"); h != "" {
			if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return defaultRetryAfter
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
