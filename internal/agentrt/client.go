package agentrt

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
)

// serverClient speaks the coordination server's RPC surface from the agent
// side: register, unregister, status report.
type serverClient struct {
	baseURL    string
	httpClient *http.Client
}

func newServerClient(baseURL string) *serverClient {
	return &serverClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type registerPayload struct {
	Name    string             `json:"name"`
	Service string             `json:"service"`
	Tools   []domainagent.Tool `json:"tools"`
}

func (c *serverClient) register(ctx context.Context, payload registerPayload) (string, error) {
	var resp struct {
		Success    bool   `json:"success"`
		Error      string `json:"error"`
		InstanceID string `json:"instance_id"`
	}
	if err := c.call(ctx, "AgentRegister", payload, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("server rejected registration: %s", resp.Error)
	}
	return resp.InstanceID, nil
}

func (c *serverClient) unregister(ctx context.Context, instanceID string) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	req := map[string]string{"instance_id": instanceID}
	if err := c.call(ctx, "AgentUnregister", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server rejected unregister: %s", resp.Error)
	}
	return nil
}

func (c *serverClient) updateStatus(ctx context.Context, instanceID, status string, cpuUsage float64) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	req := map[string]any{
		"instance_id": instanceID,
		"status":      status,
		"cpu_usage":   cpuUsage,
	}
	if err := c.call(ctx, "UpdateAgentStatus", req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server rejected status update: %s", resp.Error)
	}
	return nil
}

func (c *serverClient) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	url := c.baseURL + "/rpc/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}
