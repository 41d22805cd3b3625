package tools

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/validation"
)

const defaultLimit = 10

// pageArgs are the paging arguments shared by list tools.
type pageArgs struct {
	Limit int    `json:"limit"`
	Page  int    `json:"page"`
	Sort  string `json:"sort"`
}

func (p pageArgs) spec(schema query.Schema) (query.Spec, error) {
	values := url.Values{}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	values.Set("limit", strconv.Itoa(limit))
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Sort != "" {
		values.Set("sort", p.Sort)
	}
	return schema.Parse(values)
}

// decodeArgs copies the loosely typed tool arguments into dst.
func decodeArgs(request mcp.CallToolRequest, dst any) error {
	if request.Params.Arguments == nil {
		return nil
	}
	data, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// toolResultJSON converts a payload to an MCP tool result with JSON content.
// Returns a tool error result if the conversion fails.
func toolResultJSON(payload any) (*mcp.CallToolResult, error) {
	resultJSON, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build response", err), nil
	}
	return resultJSON, nil
}

// listResult is the envelope every list tool returns.
func listResult[T any](items []T, total int, spec query.Spec) (*mcp.CallToolResult, error) {
	if items == nil {
		items = []T{}
	}
	return toolResultJSON(map[string]any{
		"items": items,
		"total": total,
		"page":  spec.Page.Number,
		"limit": spec.Page.Limit,
	})
}

// toolError reports a failed call to the client. Validation failures carry
// their field messages; anything else is summarised by message.
func toolError(message string, err error) (*mcp.CallToolResult, error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return mcp.NewToolResultErrorFromErr(message+": invalid arguments", err), nil
	}
	return mcp.NewToolResultErrorFromErr(message, err), nil
}

func requireID(id string) (*mcp.CallToolResult, bool) {
	if id == "" {
		return mcp.NewToolResultError("id is required"), false
	}
	return nil, true
}
