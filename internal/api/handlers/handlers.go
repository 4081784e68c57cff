package handlers

import (
	"encoding/json"
	"net/http"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/services"
	"mobiguard/internal/infrastructure/cache"
	"mobiguard/internal/infrastructure/database"
	"mobiguard/internal/infrastructure/database/repository"
	"mobiguard/internal/providers"
	"mobiguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health *HealthHandler
	Scan   *ScanHandler
	Phone  *PhoneHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Config     *config.Config
	Scanner    *services.BatchScanner
	Aggregator *services.SecurityScoreAggregator
	Providers  []providers.Provider
	Limiter    *providers.RateLimiter
	Cache      *cache.RedisCache
	DB         *database.PostgresDB
	History    *repository.ScanHistoryRepository
	Logger     *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Cache, deps.DB, deps.Logger),
		Scan:   NewScanHandler(deps.Config, deps.Scanner, deps.Aggregator, deps.Providers, deps.Limiter, deps.History, deps.Logger),
		Phone:  NewPhoneHandler(deps.Scanner, deps.Logger),
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
