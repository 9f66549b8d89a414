package server

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ironsheep/image-sweep/internal/coco"
	"github.com/ironsheep/image-sweep/internal/config"
	"github.com/ironsheep/image-sweep/internal/pipeline"
	"github.com/pkg/errors"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sweep_perturb").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(context.Background(), params.Name, params.Arguments)
	if err != nil {
		_, detail := classify(err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", detail)
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "sweep_perturb":
		return s.handleSweepPerturb(ctx, args)
	case "sweep_labels":
		return s.handleSweepLabels(args)
	case "sweep_default_config":
		return s.handleSweepDefaultConfig(args)
	case "sweep_runs":
		return s.handleSweepRuns(ctx, args)
	default:
		return nil, errors.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as an empty
// object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return errors.Wrapf(pipeline.ErrInvalidRequest, "arguments: %v", err)
	}
	return nil
}

// PerturbResponse is the reply to a sweep request.
type PerturbResponse struct {
	Message  string        `json:"message"`
	RunID    string        `json:"run_id,omitempty"`
	Labels   []string      `json:"labels"`
	Datasets []coco.Output `json:"datasets"`
}

func (s *Server) perturb(ctx context.Context, req pipeline.Request) (*PerturbResponse, error) {
	res, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PerturbResponse{
		Message:  "Data received successfully",
		RunID:    res.RunID,
		Labels:   res.Labels,
		Datasets: res.Datasets,
	}, nil
}

func (s *Server) handleSweepPerturb(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pipeline.Request
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.perturb(ctx, a)
}

type sweepLabelsArgs struct {
	ConfigFile string `json:"config_file"`
}

func (s *Server) handleSweepLabels(args json.RawMessage) (interface{}, error) {
	var a sweepLabelsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ConfigFile == "" {
		return nil, errors.Wrap(pipeline.ErrInvalidRequest, "config_file is required")
	}
	labels, err := pipeline.Labels(a.ConfigFile)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count":  len(labels),
		"labels": labels,
	}, nil
}

type sweepDefaultConfigArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSweepDefaultConfig(args json.RawMessage) (interface{}, error) {
	var a sweepDefaultConfigArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	result := map[string]interface{}{"config": config.Default()}
	if a.Path != "" {
		if _, err := os.Stat(a.Path); err == nil {
			return nil, errors.Wrapf(pipeline.ErrInvalidRequest, "%s already exists", a.Path)
		}
		if err := config.WriteDefault(a.Path); err != nil {
			return nil, err
		}
		result["path"] = a.Path
	}
	return result, nil
}

type sweepRunsArgs struct {
	ID    string `json:"id"`
	Limit int    `json:"limit"`
}

func (s *Server) handleSweepRuns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sweepRunsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if s.runner.Store == nil {
		return nil, errRunsDisabled
	}
	if a.ID != "" {
		return s.runner.Store.GetRun(ctx, a.ID)
	}
	if a.Limit == 0 {
		a.Limit = 20
	}
	runs, err := s.runner.Store.ListRuns(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"runs": runs}, nil
}
