package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"telemetrygen/internal/models"
	"telemetrygen/internal/repository"
	"telemetrygen/internal/service"
	"telemetrygen/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// WorkerStatus is the view of the run loop exposed over HTTP.
type WorkerStatus interface {
	State() worker.State
	Cycles() int64
}

// StatsFunc reports server metrics of the cache backend.
type StatsFunc func(ctx context.Context) (map[string]string, error)

type TelemetryHandler struct {
	worker     WorkerStatus
	service    service.TelemetryService
	repo       repository.TelemetryRepository
	cache      repository.BatchCache
	redisStats StatsFunc
}

// NewTelemetryHandler builds the handler. repo and cache may be nil when
// the corresponding backend is not configured.
func NewTelemetryHandler(w WorkerStatus, svc service.TelemetryService, repo repository.TelemetryRepository, cache repository.BatchCache) *TelemetryHandler {
	return &TelemetryHandler{
		worker:  w,
		service: svc,
		repo:    repo,
		cache:   cache,
	}
}

// WithRedisStats adds Redis server metrics to the health response.
func (h *TelemetryHandler) WithRedisStats(stats StatsFunc) *TelemetryHandler {
	h.redisStats = stats
	return h
}

func (h *TelemetryHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	body := gin.H{
		"status":     "ok",
		"state":      h.worker.State().String(),
		"cycles":     h.worker.Cycles(),
		"last_cycle": h.service.LastOutcome(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	if h.cache != nil {
		cache := gin.H{"status": "connected"}

		if count, err := h.cache.CycleCount(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to read cycle count from cache")
			cache["status"] = "unavailable"
		} else {
			cache["cycles"] = count
		}

		if h.redisStats != nil {
			if stats, err := h.redisStats(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to read redis stats")
				cache["status"] = "unavailable"
			} else {
				cache["stats"] = stats
			}
		}

		body["redis"] = cache
	}

	c.JSON(http.StatusOK, body)
}

func respondRepoError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrDatabaseUnavailable) {
		log.Warn().Err(err).Msg("telemetry list unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is unavailable"})
		return
	}

	log.Error().Err(err).Msg("failed to list telemetry")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get telemetry"})
}

func (h *TelemetryHandler) ListTelemetry(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is not configured"})
		return
	}

	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultListLimit)))
	query := repository.ListQuery{
		Limit: limit,
		Sort:  c.DefaultQuery("sort", "recorded_at"),
		Order: c.DefaultQuery("order", "desc"),
	}.Normalize()

	total, err := h.repo.Count(ctx)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	items, err := h.repo.List(ctx, query)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"limit": query.Limit,
		"sort":  query.Sort,
		"order": query.Order,
	})
}

func (h *TelemetryHandler) LastBatch(c *gin.Context) {
	var summary *models.BatchSummary

	if h.cache != nil {
		cached, err := h.cache.LastBatch(c.Request.Context())
		if err != nil {
			log.Warn().Err(err).Msg("failed to read last batch from cache")
		}
		summary = cached
	}

	if summary == nil {
		if outcome := h.service.LastOutcome(); outcome != nil {
			summary = outcome.Batch
		}
	}

	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no batch generated yet"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *TelemetryHandler) RecentBatches(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch cache is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	batches, err := h.cache.RecentBatches(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read recent batches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get batches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": batches, "count": len(batches)})
}
