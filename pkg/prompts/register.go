package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Register exposes the static guidance prompts over the MCP prompts/list and
// prompts/get methods, next to the get_usage_guide tool for clients that
// prefer the prompt surface.
func Register(srv *server.MCPServer) {
	srv.AddPrompt(
		mcp.NewPrompt(
			"usage_guide",
			mcp.WithPromptDescription("Quick start guide for the memory service"),
		),
		guidePrompt("Quick start guide for the memory service", UsageGuide),
	)

	srv.AddPrompt(
		mcp.NewPrompt(
			"instructions",
			mcp.WithPromptDescription("Operating instructions for the memory service"),
		),
		guidePrompt("Operating instructions for the memory service", Instructions),
	)
}

func guidePrompt(description, content string) server.PromptHandlerFunc {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(content)),
		}), nil
	}
}
