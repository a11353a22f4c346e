// Package rpc defines the wire envelopes shared by the server surface, the
// dispatcher, and the agent runtime. Every response carries exactly one of
// result/error.
package rpc

import "encoding/json"

// CallRequest is a tool invocation. ToolName is qualified
// ("FileAgent.search_file") at the server surface and unqualified once it
// reaches the owning agent.
type CallRequest struct {
	ToolName   string          `json:"tool_name"`
	Parameters json.RawMessage `json:"parameters"`
}

// CallResponse is the uniform result envelope. Result and Error are mutually
// exclusive; Ok and Fail are the only constructors that should be used.
type CallResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func Ok(result json.RawMessage) CallResponse {
	if len(result) == 0 {
		result = json.RawMessage(`null`)
	}
	return CallResponse{Success: true, Result: result}
}

func OkValue(v any) CallResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return Fail("encode result: " + err.Error())
	}
	return Ok(data)
}

func Fail(reason string) CallResponse {
	if reason == "" {
		reason = "unknown error"
	}
	return CallResponse{Success: false, Error: reason}
}
