// Package callback provides the result sinks fed by the command queue: an
// in-process function sink, an HTTP webhook sink and a JWT-signed webhook
// sink. Sinks run synchronously on the executor goroutine; their latency is
// back-pressure on the queue.
package callback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Callback consumes a JSON-encoded command result.
type Callback interface {
	Execute(data any) error
}

// Func adapts a function to the Callback interface.
type Func func(data any) error

func (f Func) Execute(data any) error {
	return f(data)
}

// jsonConvertible is satisfied by command results.
type jsonConvertible interface {
	JSONString() (string, error)
}

// jsonValue coerces sink input to a JSON value: convertible results are
// serialized and parsed, JSON text is parsed, everything else passes through.
func jsonValue(data any) (any, error) {
	switch v := data.(type) {
	case jsonConvertible:
		text, err := v.JSONString()
		if err != nil {
			return nil, err
		}
		var out any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, fmt.Errorf("invalid result json: %w", err)
		}
		return out, nil
	case string:
		var out any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid result json: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

// URLResponse is the JSON-convertible outcome of a webhook post.
type URLResponse struct {
	StatusCode int
	JSONObject any
}

func (r *URLResponse) JSONString() (string, error) {
	out, err := json.Marshal(map[string]any{
		"status_code": r.StatusCode,
		"json_object": r.JSONObject,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RemoteAPI posts JSON documents to remote endpoints.
type RemoteAPI interface {
	Post(url string, jsonObject any) (*URLResponse, error)
}

// HTTPRemoteAPI is the net/http implementation of RemoteAPI.
type HTTPRemoteAPI struct {
	client *http.Client
}

// NewHTTPRemoteAPI creates a remote API over the given client. A nil client
// selects a default with a 30 second timeout.
func NewHTTPRemoteAPI(client *http.Client) *HTTPRemoteAPI {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRemoteAPI{client: client}
}

func (a *HTTPRemoteAPI) Post(url string, jsonObject any) (*URLResponse, error) {
	body, err := json.Marshal(jsonObject)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var responseJSON any
	if err := json.Unmarshal(responseBody, &responseJSON); err != nil {
		// Non-JSON responses are carried verbatim.
		responseJSON = string(responseBody)
	}
	return &URLResponse{StatusCode: resp.StatusCode, JSONObject: responseJSON}, nil
}

// URLCallback is the shared base of the webhook sinks.
type URLCallback struct {
	url    string
	remote RemoteAPI
}

func (c *URLCallback) post(jsonObject any) (*URLResponse, error) {
	return c.remote.Post(c.url, jsonObject)
}

// WebhookCallback posts the result's JSON form to a URL.
type WebhookCallback struct {
	URLCallback
}

// NewWebhookCallback creates a webhook sink for the given URL.
func NewWebhookCallback(url string, remote RemoteAPI) *WebhookCallback {
	return &WebhookCallback{URLCallback{url: url, remote: remote}}
}

func (c *WebhookCallback) Execute(data any) error {
	value, err := jsonValue(data)
	if err != nil {
		return err
	}
	response, err := c.post(value)
	if err != nil {
		return err
	}
	log.Debug("webhook callback delivered", "url", c.url, "status", response.StatusCode)
	return nil
}
