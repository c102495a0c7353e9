// Package analysis calls the external analysis service.
//
// The wire contract is a single POST with a JSON body {"handle": target}.
// A success response carries at minimum a "url" field; a non-success status
// carries a "detail" field with a human-readable reason.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	logx "skylens/pkg/logx"
)

type Config struct {
	Endpoint string
	// Timeout bounds a single Request call end to end, retries included.
	Timeout time.Duration
	// RetryMax is the number of extra attempts on transient transport failures.
	RetryMax int
}

// Result is the analysis payload referenced in the reply. Extra fields in the
// response body are ignored.
type Result struct {
	URL string `json:"url"`
}

// Rejection is a structured refusal from the analysis service. Its detail is
// surfaced verbatim to the requester.
type Rejection struct {
	StatusCode int
	Detail     string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("analysis rejected (%d): %s", r.StatusCode, r.Detail)
}

// TransportError covers everything that is not a structured rejection: the
// call could not complete, or the body was not the JSON we expect.
type TransportError struct {
	Err error
}

func (t *TransportError) Error() string { return "analysis transport: " + t.Err.Error() }
func (t *TransportError) Unwrap() error { return t.Err }

type Client struct {
	endpoint string
	http     *http.Client
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledLogx{log})
	// Keep the final response so a 5xx with a detail body still surfaces as a
	// rejection after retries are exhausted.
	rc.ErrorHandler = func(resp *http.Response, err error, _ int) (*http.Response, error) {
		return resp, err
	}

	hc := rc.StandardClient()
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Client{endpoint: cfg.Endpoint, http: hc, log: log}
}

type requestBody struct {
	Handle string `json:"handle"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Request asks the service to analyze the target handle.
func (c *Client) Request(ctx context.Context, target string) (*Result, error) {
	body, err := json.Marshal(requestBody{Handle: target})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if err := json.Unmarshal(raw, &eb); err != nil || eb.Detail == "" {
			return nil, &TransportError{Err: fmt.Errorf("status %d with unparseable body", resp.StatusCode)}
		}
		return nil, &Rejection{StatusCode: resp.StatusCode, Detail: eb.Detail}
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("malformed response body: %w", err)}
	}
	if res.URL == "" {
		return nil, &TransportError{Err: errors.New("response missing url")}
	}
	return &res, nil
}

// UserMessage converts a Request error into the text shown to the requester.
// Rejections are surfaced verbatim; everything else gets a generic hint.
func UserMessage(err error) string {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Detail
	}
	return "Analysis failed. Check the analysis endpoint and try again later."
}

// leveledLogx adapts logx to retryablehttp's logger. Client ERROR is
// re-written to WARN because failures here are retried.
type leveledLogx struct{ log logx.Logger }

func (l leveledLogx) Error(msg string, kv ...interface{}) { l.log.Warn(msg, kvFields(kv)...) }
func (l leveledLogx) Warn(msg string, kv ...interface{})  { l.log.Warn(msg, kvFields(kv)...) }
func (l leveledLogx) Info(msg string, kv ...interface{})  { l.log.Debug(msg, kvFields(kv)...) }
func (l leveledLogx) Debug(msg string, kv ...interface{}) { l.log.Debug(msg, kvFields(kv)...) }

func kvFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		fields = append(fields, logx.Any(k, kv[i+1]))
	}
	return fields
}
