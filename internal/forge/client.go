package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// UserAgent is sent with every forge request.
var UserAgent = "forge-sparks"

const defaultTimeout = 30 * time.Second

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. A malformed body is reported as
// ErrUnexpected.
func (r *Response) Decode(forge Kind, v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewError(ErrUnexpected, forge, r.StatusCode, "decoding response: %v", err)
	}
	return nil
}

// Client is a thin authenticated HTTP client shared by all adapters. It
// attaches the token, the user agent and any forge-specific headers, and
// hands the status code back to the adapter without interpreting it.
type Client struct {
	forge      Kind
	token      *oauth2.Token
	headers    http.Header
	httpClient *http.Client
}

// NewClient creates a client for a forge. scheme is the Authorization
// scheme, "token" for GitHub-compatible forges and "Bearer" for GitLab.
func NewClient(
	forge Kind,
	token string,
	scheme string,
	httpClient *http.Client,
) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		forge: forge,
		token: &oauth2.Token{
			AccessToken: token,
			TokenType:   scheme,
		},
		headers:    http.Header{},
		httpClient: httpClient,
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

// NewRequest builds an authenticated request. A non-nil body is encoded
// as JSON.
func (c *Client) NewRequest(
	ctx context.Context,
	method string,
	url string,
	body any,
) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.token.SetAuthHeader(req)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	return req, nil
}

// Do sends a request and reads the whole response body.
func (c *Client) Do(
	ctx context.Context,
	method string,
	url string,
	body any,
) (*Response, error) {
	req, err := c.NewRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Forge returns the forge kind the client was created for.
func (c *Client) Forge() Kind {
	return c.forge
}
