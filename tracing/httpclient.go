package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HTTPClient reads a trace from a trace server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client that talks to the server at baseURL, for
// example "http://localhost:3001".
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
}

// WithHTTPClient sets the underlying HTTP client.
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.client = client
	return c
}

// Overview requests the overview buckets from the server.
func (c *HTTPClient) Overview(
	ctx context.Context,
	numSamples int,
) ([]OverviewBucket, error) {
	q := url.Values{}
	q.Set("num_samples", strconv.Itoa(numSamples))

	buckets := []OverviewBucket{}

	err := c.get(ctx, "/api/overview", q, &buckets)
	if err != nil {
		return nil, err
	}

	return buckets, nil
}

// Detail requests the instructions that overlap [start, end].
func (c *HTTPClient) Detail(
	ctx context.Context,
	start, end float64,
) ([]*Instruction, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatFloat(start, 'g', -1, 64))
	q.Set("end", strconv.FormatFloat(end, 'g', -1, 64))

	insts := []*Instruction{}

	err := c.get(ctx, "/api/trace", q, &insts)
	if err != nil {
		return nil, err
	}

	return insts, nil
}

func (c *HTTPClient) get(
	ctx context.Context,
	path string,
	query url.Values,
	out any,
) error {
	u := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	rsp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(rsp.Body, 1024))
		return fmt.Errorf("GET %s: %s: %s",
			path, rsp.Status, strings.TrimSpace(string(msg)))
	}

	err = json.NewDecoder(rsp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}

	return nil
}
