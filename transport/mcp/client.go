package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/room"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Bingo Room Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Bingo Room Server - MCP Interface

This is a read-only client that proxies requests to the bingo server's REST API.
Players create rooms, join, draw numbers and claim bingo over WebSocket; these
tools let you watch rooms and check cards without affecting play.

AVAILABLE TOOLS:
- list_rooms: List every room with admin, player and draw counts
- get_room: Show one room's players, admin status, draws and winners
- called_numbers: Show a room's draw history and how many numbers remain
- check_card: Check whether a 5x5 card would win against a room's draws (nothing is announced)
- bingo_rules: Explain the active win rule and the B-I-N-G-O number bands

CARD FORMAT:
A card is an array of 5 rows of 5 cells. A cell is a number or "FREE".
Column 1 holds 1-15 (B), column 2 16-30 (I), column 3 31-45 (N),
column 4 46-60 (G), column 5 61-75 (O).`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	roomIDProperty := map[string]interface{}{
		"type":        "string",
		"description": "Room ID",
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all bingo rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get details of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": roomIDProperty,
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "called_numbers",
		Description: "Get the numbers called so far in a room, in draw order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": roomIDProperty,
			},
			Required: []string{"room_id"},
		},
	}, c.handleCalledNumbers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_card",
		Description: "Check whether a card wins against a room's called numbers without claiming bingo",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": roomIDProperty,
				"card": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "array",
						"minItems": 5,
						"maxItems": 5,
					},
					"minItems":    5,
					"maxItems":    5,
					"description": `5 rows of 5 cells; each cell is a number 1-75 or "FREE"`,
				},
			},
			Required: []string{"room_id", "card"},
		},
	}, c.handleCheckCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bingo_rules",
		Description: "Get the active win rule and the letter bands",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRules)
}

// GetMCPServer returns the underlying MCP server for stdio or HTTP serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall performs an HTTP request to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func roomPath(roomID, suffix string) string {
	return "/api/rooms/" + url.PathEscape(roomID) + suffix
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count int             `json:"count"`
		Rooms []room.Snapshot `json:"rooms"`
	}
	if err := c.apiCall("GET", "/api/rooms", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if resp.Count == 0 {
		return mcp.NewToolResultText("No active rooms"), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active rooms (%d):\n", resp.Count)
	for _, r := range resp.Rooms {
		admin := "no admin"
		if r.HasAdmin {
			admin = "admin present"
		}
		fmt.Fprintf(&result, "- %s: %d players, %d/%d called, %s\n",
			r.ID, len(r.Players), len(r.Calls), bingo.MaxNumber, admin)
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := arguments(request)["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var snap room.Snapshot
	if err := c.apiCall("GET", roomPath(roomID, ""), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(&snap)), nil
}

func (c *Client) handleCalledNumbers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := arguments(request)["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var resp struct {
		RoomID    string       `json:"room_id"`
		Calls     []bingo.Call `json:"calls"`
		Remaining int          `json:"remaining"`
	}
	if err := c.apiCall("GET", roomPath(roomID, "/calls"), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Room %s\nCalled (%d): %s\nRemaining: %d",
		resp.RoomID, len(resp.Calls), formatCalls(resp.Calls), resp.Remaining)), nil
}

func (c *Client) handleCheckCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	roomID, _ := args["room_id"].(string)
	card, ok := args["card"]
	if roomID == "" || !ok {
		return mcp.NewToolResultError("room_id and card are required"), nil
	}

	var resp struct {
		Winning bool   `json:"winning"`
		Rule    string `json:"rule"`
	}
	err := c.apiCall("POST", roomPath(roomID, "/check"), map[string]interface{}{"card": card}, &resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Debug().Str("module", "mcp").Str("room", roomID).Bool("winning", resp.Winning).Msg("card checked")

	if resp.Winning {
		return mcp.NewToolResultText(fmt.Sprintf("BINGO! The card wins in room %s under the %s rule.", roomID, resp.Rule)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Not yet. The card does not win in room %s under the %s rule.", roomID, resp.Rule)), nil
}

func (c *Client) handleRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Rule        string `json:"rule"`
		Description string `json:"description"`
	}
	if err := c.apiCall("GET", "/api/rules", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`# Bingo Rules

Active rule: %s
%s

## Number Bands
- B: 1-15
- I: 16-30
- N: 31-45
- G: 46-60
- O: 61-75

## Play
- The room creator is the admin and the only one who can call numbers.
- If the admin leaves, anyone may request admin.
- Each number is called at most once per room; after 75 calls the draw is exhausted.
- A bingo claim is checked against the room's called numbers. The centre FREE square always counts.`,
		resp.Rule, resp.Description)), nil
}

// Formatting helpers

func formatRoom(r *room.Snapshot) string {
	var result strings.Builder

	fmt.Fprintf(&result, "Room: %s\n", r.ID)
	if r.HasAdmin {
		result.WriteString("Admin: present\n")
	} else {
		result.WriteString("Admin: none (request-admin is open)\n")
	}
	fmt.Fprintf(&result, "Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

	names := r.PlayerNames()
	if len(names) == 0 {
		result.WriteString("Players: none\n")
	} else {
		fmt.Fprintf(&result, "Players (%d): %s\n", len(names), strings.Join(names, ", "))
	}

	fmt.Fprintf(&result, "Called (%d/%d): %s\n", len(r.Calls), bingo.MaxNumber, formatCalls(r.Calls))

	if len(r.Winners) > 0 {
		fmt.Fprintf(&result, "Winners: %s\n", strings.Join(r.Winners, ", "))
	}
	return result.String()
}

func formatCalls(calls []bingo.Call) string {
	if len(calls) == 0 {
		return "none"
	}
	parts := make([]string, len(calls))
	for i, call := range calls {
		parts[i] = call.String()
	}
	return strings.Join(parts, " ")
}
