package mcp

import (
	"crypto/subtle"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

const SecretHeader = "X-MCP-Secret"

// NewServer builds an MCP server with the dailyfit tools: schema, workout sessions,
// exercise catalog and muscle groups.
// Used by cmd/workouts_mcp over stdio and by the main backend at /mcp.
func NewServer(service contextService) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "dailyfit-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_dailyfit_schema",
		Description: "Returns the DB schema for the workout tables (equipment, exercise, user_profile, workout_session, exercise_set, workout_event): table names, columns, types, nullable, default.",
	}, h.GetSchemaTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workout_sessions",
		Description: "Returns finished workout sessions of a user within the given date range, with per-exercise sets, volume and duration. Args: user_email, from_date, to_date (YYYY-MM-DD); optional: exercise_name.",
	}, h.GetWorkoutSessionsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_exercise_catalog",
		Description: "Returns the shared exercise catalog (name, movement pattern, primary and secondary muscles, instructions). Optional filters: muscle_group, movement_pattern.",
	}, h.GetExerciseCatalogTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_muscle_groups",
		Description: "Returns all muscle groups grouped by category (chest, back, shoulders, arms, legs, core).",
	}, h.GetMuscleGroupsTool())

	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP. Requests must carry
// the shared secret in the X-MCP-Secret header.
func NewHTTPHandler(server *mcp.Server, secret string) http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		got := r.Header.Get(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.Debugf("mcp: rejected request from %s", r.RemoteAddr)
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		streamable.ServeHTTP(w, r)
	})
}
