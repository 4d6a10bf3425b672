// Package mcpserver exposes stored study sessions to MCP clients over stdio.
// It is read-only: nothing here uploads, generates or writes.
package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"studyhelper/internal/logger"
	"studyhelper/internal/models"
	"studyhelper/internal/studio"
)

// Sessions reads stored study sessions.
type Sessions interface {
	ListAll(ctx context.Context) ([]models.SessionPreview, error)
	Get(ctx context.Context, id int64) (*models.StudySession, error)
}

type handlers struct {
	sessions Sessions
	logger   *logger.Logger
}

// New builds an MCP server with the session tools registered.
func New(sessions Sessions, version string, log *logger.Logger) *server.MCPServer {
	if log == nil {
		log = logger.Nop()
	}
	h := &handlers{sessions: sessions, logger: log}
	s := server.NewMCPServer("studyhelper", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_study_sessions",
		mcp.WithDescription("List every saved study session with its filename and a short summary preview, oldest first."),
	), h.listSessions)

	s.AddTool(mcp.NewTool("get_study_session",
		mcp.WithDescription("Return the full summary, flashcards and quiz of one saved study session."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Session id as returned by list_study_sessions")),
	), h.getSession)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.sessions.ListAll(ctx)
	if err != nil {
		h.logger.Error("mcp list sessions failed", "error", err)
		return mcp.NewToolResultError("list sessions failed: " + err.Error()), nil
	}
	return jsonResult(studio.HistoryEntries(sessions))
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := int64(raw)
	if id <= 0 || float64(id) != raw {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	session, err := h.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mcp.NewToolResultError(fmt.Sprintf("session %d not found", id)), nil
		}
		h.logger.Error("mcp get session failed", "id", id, "error", err)
		return mcp.NewToolResultError("load session failed: " + err.Error()), nil
	}
	return jsonResult(session)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
