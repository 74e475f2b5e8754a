// Package mcpserver exposes the turn engine as an MCP tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aiox-platform/concierge/internal/orchestrator"
)

const ToolConverse = "converse"

type Server struct {
	engine    orchestrator.TurnHandler
	validator *orchestrator.Validator
	mcp       *server.MCPServer
}

func New(engine orchestrator.TurnHandler, version string) *Server {
	s := &Server{
		engine:    engine,
		validator: orchestrator.NewValidator(),
		mcp:       server.NewMCPServer("concierge", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(ToolConverse,
		mcp.WithDescription("Send one utterance to the concierge and get its reply. Food orders, stock quotes and football news are handled; the conversation continues across calls with the same actor_id and session_id."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the user said")),
		mcp.WithString("actor_id", mcp.Required(), mcp.Description("Stable id of the user")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation id")),
	), s.HandleConverse)

	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HandleConverse runs one turn. Input and engine errors become tool errors.
func (s *Server) HandleConverse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	in := orchestrator.TurnInput{
		ActorID:   stringArg(args, "actor_id"),
		SessionID: stringArg(args, "session_id"),
		Prompt:    stringArg(args, "prompt"),
	}
	if err := s.validator.ValidateInput(&in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.engine.HandleTurn(ctx, in.ActorID, in.SessionID, in.Prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return mcp.NewToolResultError("turn timed out"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}

	out := orchestrator.TurnResponse{
		Response:  res.Response,
		ActorID:   in.ActorID,
		SessionID: in.SessionID,
	}
	if res.Episode != nil {
		out.EpisodeID = res.Episode.ID
		out.Outcome = string(res.Episode.Outcome)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}
