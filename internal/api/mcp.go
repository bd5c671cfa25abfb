package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/feelbuddy/internal/buddy"
	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/mood"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/session"
)

// recentFeelings is how many entries the feelings://recent resource lists.
const recentFeelings = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session  *session.Controller
	Quotes   *quote.Selector
	Location *time.Location
}

// NewMCPServer creates an MCP server with all feelbuddy tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Quotes == nil {
		deps.Quotes = quote.NewSelector()
	}

	s := server.NewMCPServer(
		"feelbuddy",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("feelbuddy: the user's mood journal. Log feelings, read mood analytics and the context Buddy uses."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("log_feeling",
			mcp.WithDescription("Record how the user feels right now."),
			mcp.WithString("type", mcp.Description("Feeling label, e.g. Happy, Sad, Anxious"), mcp.Required()),
			mcp.WithNumber("intensity", mcp.Description("Intensity from 1 to 5"), mcp.Required()),
			mcp.WithString("note", mcp.Description("Optional free-text note")),
		),
		mcpLogFeeling(deps),
	)

	s.AddTool(
		mcp.NewTool("mood_stats",
			mcp.WithDescription("Return stability score, dominant mood, recent swings and the chart series as JSON."),
		),
		mcpMoodStats(deps),
	)

	s.AddTool(
		mcp.NewTool("buddy_context",
			mcp.WithDescription("Return the context summary Buddy receives about the user's recent moods."),
			mcp.WithString("mode", mcp.Description("TEXT (default) or VOICE")),
		),
		mcpBuddyContext(deps),
	)

	s.AddTool(
		mcp.NewTool("daily_quote",
			mcp.WithDescription("Pick a supportive quote for the user's latest feeling."),
		),
		mcpDailyQuote(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"User Profile",
			mcp.WithResourceDescription("The onboarded user as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"feelings://recent",
			"Recent Feelings",
			mcp.WithResourceDescription("Last 10 logged feelings, oldest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpLogFeeling(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typ, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		f, err := req.RequireFloat("intensity")
		if err != nil {
			return mcpError("intensity is required"), nil
		}
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return mcpError(fmt.Sprintf("intensity must be a whole number from %d to %d, got %v", feeling.MinIntensity, feeling.MaxIntensity, f)), nil
		}
		intensity := int(f)

		e, err := deps.Session.CheckIn(feeling.CheckIn{
			Type:      typ,
			Intensity: intensity,
			Note:      req.GetString("note", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to log feeling: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Logged %s (%d/5) as %s", e.Type, e.Intensity, e.ID)), nil
	}
}

func mcpMoodStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report := mood.Summarize(deps.Session.State().Feelings, deps.Location)
		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpBuddyContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s := deps.Session.State()
		if s.User == nil {
			return mcpError("no user has onboarded yet"), nil
		}
		mode := buddy.ModeText
		if strings.EqualFold(req.GetString("mode", ""), string(buddy.ModeVoice)) {
			mode = buddy.ModeVoice
		}
		return mcpText(buddy.SystemInstruction(mode, *s.User, s.Feelings, deps.Location)), nil
	}
}

func mcpDailyQuote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := deps.Quotes.PickLatest(deps.Session.State().Feelings)
		return mcpText(q.Emoji + " " + q.Text), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		u := deps.Session.State().User
		if u == nil {
			u = &feeling.User{}
		}

		b, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		recent := mood.Tail(deps.Session.State().Feelings, recentFeelings)

		b, err := json.Marshal(recent)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal feelings: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
