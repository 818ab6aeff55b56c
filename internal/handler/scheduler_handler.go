package handler

import (
	"errors"
	"net/http"

	"mpola/internal/scheduler"

	"github.com/gin-gonic/gin"
)

type SchedulerHandler struct {
	sched *scheduler.Scheduler
}

func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// Trigger runs one sweep of due schedules immediately.
func (h *SchedulerHandler) Trigger(c *gin.Context) {
	summary, err := h.sched.ProcessDueSchedules(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Status reports whether a sweep is in flight, the last completed summary and
// the per-schedule breakdown.
func (h *SchedulerHandler) Status(c *gin.Context) {
	running, last := h.sched.Status()
	schedules, err := h.sched.Report()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":   running,
		"last_run":  last,
		"schedules": schedules,
	})
}
