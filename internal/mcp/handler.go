package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests and responses: parses input, calls the service, formats MCP result.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

// GetSchemaTool returns the MCP tool handler for get_dailyfit_schema.
func (h *Handler) GetSchemaTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return errorResult("Error fetching schema: " + err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	}
}

// WorkoutSessionsInput is the input for get_workout_sessions.
type WorkoutSessionsInput struct {
	UserEmail    string `json:"user_email" jsonschema:"Email of the account whose sessions to list"`
	FromDate     string `json:"from_date" jsonschema:"Start date (YYYY-MM-DD)"`
	ToDate       string `json:"to_date" jsonschema:"End date (YYYY-MM-DD)"`
	ExerciseName string `json:"exercise_name,omitempty" jsonschema:"Only sessions with an exercise whose name contains this text (e.g. bench)"`
}

// GetWorkoutSessionsTool returns the MCP tool handler for get_workout_sessions.
func (h *Handler) GetWorkoutSessionsTool() func(context.Context, *mcp.CallToolRequest, WorkoutSessionsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WorkoutSessionsInput) (*mcp.CallToolResult, any, error) {
		if in.UserEmail == "" {
			return errorResult("Missing user_email"), nil, nil
		}
		from, err := time.Parse(time.DateOnly, in.FromDate)
		if err != nil {
			return errorResult("Invalid from_date: use YYYY-MM-DD"), nil, nil
		}
		to, err := time.Parse(time.DateOnly, in.ToDate)
		if err != nil {
			return errorResult("Invalid to_date: use YYYY-MM-DD"), nil, nil
		}
		to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 999999999, to.Location())

		sessions, err := h.service.ListSessions(ctx, SessionsParams{
			UserEmail:    in.UserEmail,
			From:         from,
			To:           to,
			ExerciseName: in.ExerciseName,
		})
		if err != nil {
			if errors.Is(err, ErrUnknownUser) {
				return errorResult("No user with email " + in.UserEmail), nil, nil
			}
			return errorResult("Error listing sessions: " + err.Error()), nil, nil
		}
		return jsonResult(sessions), nil, nil
	}
}

// ExerciseCatalogInput is the input for get_exercise_catalog.
type ExerciseCatalogInput struct {
	MuscleGroup     string `json:"muscle_group,omitempty" jsonschema:"Filter by muscle group name (e.g. Chest, Quadriceps)"`
	MovementPattern string `json:"movement_pattern,omitempty" jsonschema:"Filter by movement pattern (e.g. push, pull, squat, hinge)"`
}

// GetExerciseCatalogTool returns the MCP tool handler for get_exercise_catalog.
func (h *Handler) GetExerciseCatalogTool() func(context.Context, *mcp.CallToolRequest, ExerciseCatalogInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseCatalogInput) (*mcp.CallToolResult, any, error) {
		entries, err := h.service.GetExerciseCatalog(ctx, in.MuscleGroup, in.MovementPattern)
		if err != nil {
			return errorResult("Error fetching exercise catalog: " + err.Error()), nil, nil
		}
		return jsonResult(entries), nil, nil
	}
}

// GetMuscleGroupsTool returns the MCP tool handler for get_muscle_groups.
func (h *Handler) GetMuscleGroupsTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		return jsonResult(h.service.GetMuscleGroups()), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return textResult(string(raw))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
