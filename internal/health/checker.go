package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"crypto-paper-trading/pkg/database"
)

type Checker struct {
	db     *database.DB
	logger *logrus.Logger
}

type Status struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewChecker(db *database.DB, logger *logrus.Logger) *Checker {
	return &Checker{
		db:     db,
		logger: logger,
	}
}

func (c *Checker) Check(ctx context.Context) Status {
	services := make(map[string]string)
	overall := "healthy"

	if err := c.db.HealthCheck(); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		overall = "unhealthy"
		c.logger.WithError(err).Error("Database health check failed")
	} else {
		services["database"] = "healthy"
	}

	return Status{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
}

func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := c.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	}
}

// StartServer exposes the health endpoint on its own port for the collector
// binary.
func (c *Checker) StartServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.WithError(err).Error("Health server stopped unexpectedly")
		}
	}()

	c.logger.WithField("port", port).Info("Health server started")
	return server
}
