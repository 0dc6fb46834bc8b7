package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/taylorevents/internal/db"
)

// RunController is the subset of the run service's behavior the HTTP
// layer needs: starting a run, looking one up, and listing its
// detected events. It is an interface so the route layer and the run
// orchestration package can be developed and tested independently.
type RunController interface {
	StartRun(req StartRunRequest) (runID string, err error)
	GetRun(runID string) (RunStatus, bool)
	ListEvents(runID string) ([]EventEnvelope, bool)
}

// StartRunRequest is the POST /runs request body.
type StartRunRequest struct {
	System  string  `json:"system" binding:"required"` // "pendulum" or "collision"
	Horizon float64 `json:"horizon" binding:"required"`
	Order   int     `json:"order"`
}

// RunStatus is the GET /runs/{id} response body.
type RunStatus struct {
	RunID     string  `json:"runId"`
	System    string  `json:"system"`
	StepIndex int     `json:"stepIndex"`
	SimTime   float64 `json:"simTime"`
	Done      bool    `json:"done"`
}

// EventEnvelope is one entry in the GET /runs/{id}/events response.
type EventEnvelope struct {
	StepIndex int         `json:"stepIndex"`
	SimTime   float64     `json:"simTime"`
	Terminal  bool        `json:"terminal"`
	Event     interface{} `json:"event"`
}

// APIHandler wires the run controller, the websocket hub, and the
// checkpoint store into gin route handlers.
type APIHandler struct {
	runs    RunController
	wsHub   *Hub
	dbStore *db.PostgresStore
}

// SetupRouter builds the gin engine: CORS, the public websocket stream,
// and the rate-limited /runs API.
func SetupRouter(runs RunController, wsHub *Hub, dbStore *db.PostgresStore) *gin.Engine {
	r := gin.Default()

	// CORS — configurable via ALLOWED_ORIGINS env var.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{runs: runs, wsHub: wsHub, dbStore: dbStore}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/runs/:id/stream", wsHub.Subscribe)
	}

	// Starting a run is rate-limited: each run spawns a goroutine that
	// drives integration to completion, so unthrottled POSTs are a
	// resource-exhaustion vector.
	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(30, 5).Middleware())
	{
		protected.POST("/runs", handler.handleStartRun)
		protected.GET("/runs/:id", handler.handleGetRun)
		protected.GET("/runs/:id/events", handler.handleListEvents)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"service":     "taylorevents",
		"dbConnected": h.dbStore != nil,
	})
}

func (h *APIHandler) handleStartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.System != "pendulum" && req.System != "collision" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "system must be \"pendulum\" or \"collision\""})
		return
	}

	runID, err := h.runs.StartRun(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run", "details": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

func (h *APIHandler) handleGetRun(c *gin.Context) {
	status, ok := h.runs.GetRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *APIHandler) handleListEvents(c *gin.Context) {
	events, ok := h.runs.ListEvents(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	// Optional pagination, mirroring the teacher's page/limit convention.
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	start := (page - 1) * limit
	if start > len(events) {
		start = len(events)
	}
	end := start + limit
	if end > len(events) {
		end = len(events)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       events[start:end],
		"totalCount": len(events),
		"page":       page,
		"limit":      limit,
	})
}
