package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// LiveModer reports the active change subscriber, "" when degraded.
type LiveModer interface {
	LiveMode() string
}

type HealthHandler struct {
	DB        func() *sql.DB
	RabbitMQ  *amqp091.Connection
	Live      LiveModer
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(db func() *sql.DB, rabbitMQ *amqp091.Connection, live LiveModer, version string) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		Live:      live,
		Version:   version,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	unhealthy := false

	var db *sql.DB
	if h.DB != nil {
		db = h.DB()
	}
	if db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
			unhealthy = true
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not connected"
	}

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
			unhealthy = true
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	// Without live updates the dashboard still works on manual reloads.
	if h.Live != nil {
		if mode := h.Live.LiveMode(); mode != "" {
			deps["live_updates"] = mode
		} else {
			deps["live_updates"] = "degraded"
		}
	}

	status := "healthy"
	if unhealthy {
		status = "degraded"
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(response)
}
