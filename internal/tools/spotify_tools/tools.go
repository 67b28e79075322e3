package spotify_tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/spotify-mcp/internal/instrumentation"
	"github.com/teemow/spotify-mcp/internal/logging"
	"github.com/teemow/spotify-mcp/internal/server"
	"github.com/teemow/spotify-mcp/internal/spotify"
	"github.com/teemow/spotify-mcp/internal/tools/common"
)

// Tool names.
const (
	ToolProfile          = "get-my-spotify-profile"
	ToolUserID           = "get-my-spotify-id"
	ToolCurrentlyPlaying = "get-currently-playing"
	ToolPlaylists        = "get-my-spotify-playlists"
)

// Acknowledgement lines that head successful results.
const (
	MessageProfile          = "Fetched user profile."
	MessageCurrentlyPlaying = "Fetched currently playing track."
	MessageNothingPlaying   = "No track currently playing."
	MessagePlaylists        = "Fetched user playlists."
)

// LoginPrompt is the text returned when no access token is available.
func LoginPrompt(loginURL string) string {
	return "Access token not found. Please log in via " + loginURL
}

// RegisterSpotifyTools registers all Spotify tools with the MCP server
func RegisterSpotifyTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil {
		return errors.New("mcp server is required")
	}
	if sc == nil {
		return errors.New("server context is required")
	}

	s.AddTools(Tools(sc)...)
	return nil
}

// Tools returns the Spotify tool definitions bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		newTool(ToolProfile, "Get the current user's Spotify profile", instrumentation.OperationProfile, sc, handleProfile),
		newTool(ToolUserID, "Get the current user's Spotify user ID", instrumentation.OperationUserID, sc, handleUserID),
		newTool(ToolCurrentlyPlaying, "Get the track the current user is playing on Spotify", instrumentation.OperationCurrentlyPlaying, sc, handleCurrentlyPlaying),
		newTool(ToolPlaylists, "Get the current user's Spotify playlists", instrumentation.OperationPlaylists, sc, handlePlaylists),
	}
}

// operationHandler runs one Spotify operation with a valid access token.
type operationHandler func(ctx context.Context, client *spotify.Client, accessToken string) (*mcp.CallToolResult, error)

func newTool(name, description, operation string, sc *server.ServerContext, handler operationHandler) mcpserver.ServerTool {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(name, operation, sc, withAccessToken(name, sc, handler))),
	}
}

// withAccessToken fetches the stored token before running handler. Without
// a token the login prompt is returned and handler is never called.
func withAccessToken(name string, sc *server.ServerContext, handler operationHandler) common.ToolHandler {
	logger := logging.WithTool(slog.Default(), name)
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		accessToken, err := sc.Tokens().Fetch(ctx)
		if err != nil {
			logger.Debug("no access token available", logging.Err(err))
			return mcp.NewToolResultText(LoginPrompt(sc.Tokens().LoginURL())), nil
		}

		result, err := handler(ctx, sc.Spotify(), accessToken)
		if errors.Is(err, spotify.ErrMissingToken) {
			return mcp.NewToolResultText(LoginPrompt(sc.Tokens().LoginURL())), nil
		}
		return result, err
	}
}

func handleProfile(ctx context.Context, client *spotify.Client, accessToken string) (*mcp.CallToolResult, error) {
	user, err := client.Profile(ctx, accessToken)
	if err != nil {
		return errorResult("Failed to fetch user profile", err)
	}
	return common.TextWithJSON(MessageProfile, user)
}

func handleUserID(ctx context.Context, client *spotify.Client, accessToken string) (*mcp.CallToolResult, error) {
	id, err := client.UserID(ctx, accessToken)
	if err != nil {
		return errorResult("Failed to fetch user ID", err)
	}
	return common.TextWithJSON("User ID: "+id, map[string]string{"id": id})
}

func handleCurrentlyPlaying(ctx context.Context, client *spotify.Client, accessToken string) (*mcp.CallToolResult, error) {
	playback, err := client.CurrentlyPlaying(ctx, accessToken)
	if err != nil {
		return errorResult("Failed to fetch currently playing track", err)
	}
	if playback == nil {
		return mcp.NewToolResultText(MessageNothingPlaying), nil
	}
	return common.TextWithJSON(MessageCurrentlyPlaying, playback)
}

func handlePlaylists(ctx context.Context, client *spotify.Client, accessToken string) (*mcp.CallToolResult, error) {
	page, err := client.Playlists(ctx, accessToken)
	if err != nil {
		return errorResult("Failed to fetch user playlists", err)
	}
	return common.TextWithJSON(MessagePlaylists, page)
}

// errorResult reports an expected failure as an MCP error result. Missing
// tokens pass through so withAccessToken can turn them into the login prompt.
func errorResult(action string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, spotify.ErrMissingToken) {
		return nil, err
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err)), nil
}
