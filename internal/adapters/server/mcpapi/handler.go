// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/filterdeck/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with read tools and, when reader is a FilterService, edit tools.
func NewHandler(cfg Config, reader common.FilterReader) (*Handler, error) {
	if reader == nil {
		return nil, fmt.Errorf("filter reader is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, reader)
	if svc, ok := reader.(common.FilterService); ok {
		registerEditTools(mcpSrv, svc)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "filterdeck"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReadTools registers subscription, filter, and change-feed queries.
func registerReadTools(srv *mcpserver.MCPServer, reader common.FilterReader) {
	srv.AddTool(
		mcp.NewTool(
			"filterdeck.list_subscriptions",
			mcp.WithDescription("List filter subscriptions; downloaded ones are read-only."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subs, err := reader.ListSubscriptions(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_subscriptions", map[string]any{"subscriptions": subs})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.list_filters",
			mcp.WithDescription("List a subscription's filters in stored order with their current indices."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subscriptionID, err := req.RequireString("subscription_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filters, err := reader.ListFilters(ctx, subscriptionID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_filters", map[string]any{"filters": filters})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.list_changes",
			mcp.WithDescription("List the newest edits of a subscription."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of events"), mcp.Min(1)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subscriptionID, err := req.RequireString("subscription_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			events, err := reader.ListChangeEvents(ctx, subscriptionID, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_changes", map[string]any{"events": events})
		},
	)
}

// registerEditTools registers the mutation tools.
func registerEditTools(srv *mcpserver.MCPServer, svc common.FilterService) {
	srv.AddTool(
		mcp.NewTool(
			"filterdeck.add_filter",
			mcp.WithDescription("Insert one filter into an editable subscription."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
			mcp.WithString("text", mcp.Required(), mcp.Description("Filter rule text")),
			mcp.WithNumber("position", mcp.Description("Insertion index; appends when omitted"), mcp.Min(0)),
			mcp.WithBoolean("disabled", mcp.Description("Insert the filter disabled")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subscriptionID, err := req.RequireString("subscription_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in := common.AddFilterRequest{
				SubscriptionID: subscriptionID,
				Text:           text,
				Disabled:       req.GetBool("disabled", false),
			}
			if position, err := req.RequireInt("position"); err == nil {
				in.Position = &position
			}
			filter, err := svc.AddFilter(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_filter", filter)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.update_filter",
			mcp.WithDescription("Change a filter's text, disabled flag, or both."),
			mcp.WithString("filter_id", mcp.Required(), mcp.Description("Filter identifier")),
			mcp.WithString("text", mcp.Description("Replacement rule text")),
			mcp.WithBoolean("disabled", mcp.Description("New disabled flag")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			filterID, err := req.RequireString("filter_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in := common.UpdateFilterRequest{FilterID: filterID}
			if text, err := req.RequireString("text"); err == nil {
				in.Text = &text
			}
			if disabled, err := req.RequireBool("disabled"); err == nil {
				in.Disabled = &disabled
			}
			filter, err := svc.UpdateFilter(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_filter", filter)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.move_filter",
			mcp.WithDescription("Move one filter; from must be its current index."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
			mcp.WithString("filter_id", mcp.Required(), mcp.Description("Filter identifier")),
			mcp.WithNumber("from", mcp.Required(), mcp.Description("Current index"), mcp.Min(0)),
			mcp.WithNumber("to", mcp.Required(), mcp.Description("Target index"), mcp.Min(0)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			in, err := moveRequest(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := svc.MoveFilter(ctx, in); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_filter", map[string]any{"moved": in.FilterID, "index": in.To})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.remove_filter",
			mcp.WithDescription("Remove one filter; index must be its current index."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
			mcp.WithString("filter_id", mcp.Required(), mcp.Description("Filter identifier")),
			mcp.WithNumber("index", mcp.Required(), mcp.Description("Current index"), mcp.Min(0)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subscriptionID, err := req.RequireString("subscription_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filterID, err := req.RequireString("filter_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			index, err := req.RequireInt("index")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := svc.RemoveFilter(ctx, common.RemoveFilterRequest{
				SubscriptionID: subscriptionID,
				FilterID:       filterID,
				Index:          index,
			}); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("remove_filter", map[string]any{"removed": filterID})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.rename_subscription",
			mcp.WithDescription("Change a subscription's title."),
			mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Subscription identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			subscriptionID, err := req.RequireString("subscription_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sub, err := svc.RenameSubscription(ctx, common.RenameSubscriptionRequest{
				SubscriptionID: subscriptionID,
				Title:          title,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("rename_subscription", sub)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"filterdeck.record_hit",
			mcp.WithDescription("Count matches for one filter and stamp its last hit time."),
			mcp.WithString("filter_id", mcp.Required(), mcp.Description("Filter identifier")),
			mcp.WithNumber("count", mcp.Description("Matches to add; defaults to 1"), mcp.Min(1)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			filterID, err := req.RequireString("filter_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filter, err := svc.RecordHits(ctx, common.RecordHitsRequest{
				FilterID: filterID,
				Count:    req.GetInt("count", 1),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("record_hit", filter)
		},
	)
}

// moveRequest reads the move_filter arguments.
func moveRequest(req mcp.CallToolRequest) (common.MoveFilterRequest, error) {
	subscriptionID, err := req.RequireString("subscription_id")
	if err != nil {
		return common.MoveFilterRequest{}, err
	}
	filterID, err := req.RequireString("filter_id")
	if err != nil {
		return common.MoveFilterRequest{}, err
	}
	from, err := req.RequireInt("from")
	if err != nil {
		return common.MoveFilterRequest{}, err
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return common.MoveFilterRequest{}, err
	}
	return common.MoveFilterRequest{SubscriptionID: subscriptionID, FilterID: filterID, From: from, To: to}, nil
}

// jsonResult encodes one successful tool payload.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrReadOnly):
		return mcp.NewToolResultError("read_only: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("index_conflict: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
