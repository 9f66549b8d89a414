package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "sweep_perturb",
			Description: "Run a perturbation sweep over a dataset. Every parameter combination of the configured " +
				"perturber factory is applied to every image and written to <output_dir>/<label> as images/, " +
				"annotations.json and image_metadata.json.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Optional run id; a UUID is generated when empty",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Optional human-readable run name",
					},
					"dataset_dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the dataset root (images directly inside or in images/)",
					},
					"label_file": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a COCO annotation file. Omit to sweep images without detections",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to write the perturbed datasets to",
					},
					"image_metadata": map[string]interface{}{
						"type":        []string{"array", "object", "null"},
						"description": "One object per image (sorted file name order), or one object applied to every image. Sensor perturbers need img_gsd",
					},
					"config_file": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a JSON or YAML file with a PerturberFactory section",
					},
				},
				"required": []string{"dataset_dir", "output_dir", "config_file"},
			},
		},
		{
			Name:        "sweep_labels",
			Description: "List the output directory labels a sweep config would produce, in sweep order, without touching any images.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config_file": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sweep config file",
					},
				},
				"required": []string{"config_file"},
			},
		},
		{
			Name:        "sweep_default_config",
			Description: "Return the default sensor sweep configuration. When path is given the config is also written there (JSON or YAML by extension).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to write the config to; an existing file is never overwritten",
					},
				},
			},
		},
		{
			Name:        "sweep_runs",
			Description: "List recorded sweep runs, newest first, or show one run with its steps.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Run id to show in detail",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs to list. Default 20",
						"default":     20,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
