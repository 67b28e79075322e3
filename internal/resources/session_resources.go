package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/spotify-mcp/internal/server"
)

// SessionURI is the URI of the login state resource.
const SessionURI = "spotify://session"

// SessionInfo is the body of the session resource.
type SessionInfo struct {
	LoggedIn bool   `json:"logged_in"`
	LoginURL string `json:"login_url"`
}

// RegisterSessionResources registers resources describing the Spotify login
// session.
func RegisterSessionResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil {
		return errors.New("mcp server is required")
	}
	if sc == nil {
		return errors.New("server context is required")
	}

	sessionResource := mcp.NewResource(
		SessionURI,
		"Spotify Session",
		mcp.WithResourceDescription("Whether a Spotify user is logged in, and the URL to log in"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(sessionResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSession(ctx, request, sc)
	})

	return nil
}

// handleSession asks the authorization server for a token. Only the presence
// of the token is reported.
func handleSession(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	_, err := sc.Tokens().Fetch(ctx)

	info := SessionInfo{
		LoggedIn: err == nil,
		LoginURL: sc.Tokens().LoginURL(),
	}

	jsonData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
