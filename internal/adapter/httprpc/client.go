// Package httprpc is the outbound transport: JSON method calls against an
// agent instance's HTTP endpoint.
package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	"github.com/qwei/desk-mcp/internal/domain/rpc"
	portcaller "github.com/qwei/desk-mcp/internal/port/caller"
)

type Client struct {
	httpClient  *http.Client
	callTimeout time.Duration
}

var _ portcaller.AgentCaller = (*Client)(nil)

// NewClient builds a caller whose per-call deadline is callTimeout. Timeout
// expiry is classified as unreachable, same as a refused connection, so the
// dispatcher's failover treats both identically.
func NewClient(callTimeout time.Duration) *Client {
	return &Client{
		httpClient:  &http.Client{},
		callTimeout: callTimeout,
	}
}

// CallTool invokes the agent's ToolsCall endpoint with the bare tool name.
// A transport failure or non-2xx status wraps ErrUnreachable; a decoded
// envelope is returned verbatim, including tool-level failures.
func (c *Client) CallTool(ctx context.Context, addr domainagent.Address, toolName string, params json.RawMessage) (rpc.CallResponse, error) {
	if params == nil {
		params = json.RawMessage(`{}`)
	}
	body, err := json.Marshal(rpc.CallRequest{ToolName: toolName, Parameters: params})
	if err != nil {
		return rpc.CallResponse{}, fmt.Errorf("marshaling call request: %w", err)
	}

	respBody, err := c.post(ctx, addr, "ToolsCall", body)
	if err != nil {
		return rpc.CallResponse{}, err
	}

	var envelope rpc.CallResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return rpc.CallResponse{}, fmt.Errorf("decoding call response from %s: %w", addr.Endpoint, err)
	}
	return envelope, nil
}

// Ping checks reachability of the instance's own Ping endpoint.
func (c *Client) Ping(ctx context.Context, addr domainagent.Address) error {
	_, err := c.post(ctx, addr, "Ping", []byte(`{}`))
	return err
}

func (c *Client) post(ctx context.Context, addr domainagent.Address, method string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	url := strings.TrimSuffix(addr.Endpoint, "/") + "/rpc/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", portcaller.ErrUnreachable, method, addr.Endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response from %s: %v", portcaller.ErrUnreachable, addr.Endpoint, err)
	}

	// Agents report tool-level failures inside a 200 envelope. Any other
	// status means the endpoint itself is broken.
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d: %s", portcaller.ErrUnreachable, addr.Endpoint, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
