// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Client executes GraphQL operations against a running test server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new test client without authentication.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a copy of the client that sends the bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.Token = token
	return &clone
}

// GraphQLError is one error entry of a GraphQL response.
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// GraphQLResponse is the response envelope of a GraphQL request.
type GraphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []GraphQLError             `json:"errors"`
}

// HasErrors reports whether the response contains any error.
func (r *GraphQLResponse) HasErrors() bool {
	return len(r.Errors) > 0
}

// FirstErrorCode returns the extensions code of the first error, or "".
func (r *GraphQLResponse) FirstErrorCode() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Extensions.Code
}

// Execute posts one GraphQL operation and decodes the envelope.
func (c *Client) Execute(t *testing.T, query string, variables map[string]interface{}) *GraphQLResponse {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/graphql", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out GraphQLResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

// MustExecute runs the operation and fails the test on any GraphQL error.
func (c *Client) MustExecute(t *testing.T, query string, variables map[string]interface{}) *GraphQLResponse {
	t.Helper()
	resp := c.Execute(t, query, variables)
	require.Falsef(t, resp.HasErrors(), "unexpected graphql errors: %+v", resp.Errors)
	return resp
}

// Decode unmarshals one data field into out.
func (r *GraphQLResponse) Decode(t *testing.T, field string, out interface{}) {
	t.Helper()
	raw, ok := r.Data[field]
	require.Truef(t, ok, "missing data field %q", field)
	require.NoError(t, json.Unmarshal(raw, out))
}
