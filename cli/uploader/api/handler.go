package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/daniil11ru/tracker/cli/uploader/api/dto/response"
	"github.com/daniil11ru/tracker/cli/uploader/controller"
	"github.com/daniil11ru/tracker/cli/uploader/pipeline"
	"github.com/daniil11ru/tracker/cli/uploader/status"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	"github.com/gin-gonic/gin"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 500
)

type Reporter interface {
	Snapshot() controller.Snapshot
}

type Journal interface {
	Messages() []status.Message
}

type Counter interface {
	Stats() pipeline.Stats
}

type WakeLock interface {
	Held() bool
}

type Queue interface {
	PeekBatch(ctx context.Context, n int) ([]types.Position, error)
}

type Handler struct {
	Reporter Reporter
	Journal  Journal
	Counter  Counter
	WakeLock WakeLock
	Queue    Queue
}

func (h *Handler) GetStatus(c *gin.Context) {
	snap := h.Reporter.Snapshot()
	result := response.Status{
		State:          snap.State.String(),
		Connectivity:   snap.Connectivity.String(),
		WaitingForData: snap.WaitingForData,
		LastSuccess:    snap.LastSuccess,
	}
	if h.WakeLock != nil {
		result.WakeLocked = h.WakeLock.Held()
	}
	if h.Counter != nil {
		stats := h.Counter.Stats()
		result.Received, result.Accepted, result.Failed = stats.Received, stats.Accepted, stats.Failed
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetMessages(c *gin.Context) {
	messages := h.Journal.Messages()

	result := make([]response.Message, 0, len(messages))
	for _, m := range messages {
		result = append(result, response.Message{Time: m.Time, Text: m.Text})
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetQueue(c *gin.Context) {
	limit := defaultQueueLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		value, err := strconv.Atoi(limitStr)
		if err != nil || value < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный limit"})
			return
		}
		limit = min(value, maxQueueLimit)
	}

	positions, err := h.Queue.PeekBatch(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := make([]response.Position, 0, len(positions))
	for _, p := range positions {
		result = append(result, response.Position{
			ID:                 p.ID,
			DeviceID:           p.DeviceID,
			Time:               p.Time,
			Latitude:           p.Latitude,
			Longitude:          p.Longitude,
			HorizontalAccuracy: p.HorizontalAccuracy,
			Altitude:           p.Altitude,
			Speed:              p.Speed,
			Course:             p.Course,
			Battery:            p.Battery,
		})
	}

	c.JSON(http.StatusOK, result)
}
