package handler

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/scheduler"
)

// SchedulerHandler exposes the maintenance tasks. Changes are only
// accepted from the local host.
type SchedulerHandler struct {
	Scheduler *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(s *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{Scheduler: s}
}

// GetAllTasks returns all tasks with their status
func (h *SchedulerHandler) GetAllTasks(c *gin.Context) {
	tasks := h.Scheduler.GetTaskStatus()
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GetTask returns the status of one task
func (h *SchedulerHandler) GetTask(c *gin.Context) {
	name := c.Param("name")
	for _, task := range h.Scheduler.GetTaskStatus() {
		if task.Name == name {
			c.JSON(http.StatusOK, task)
			return
		}
	}
	RespondError(c, http.StatusNotFound, ErrNotFound, "Task not found: "+name)
}

// UpdateTask enables or disables a task
func (h *SchedulerHandler) UpdateTask(c *gin.Context) {
	name := c.Param("name")

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		RespondError(c, http.StatusBadRequest, ErrInvalidInput, `Expected {"enabled": true|false}`)
		return
	}

	var err error
	if *req.Enabled {
		err = h.Scheduler.EnableTask(name)
	} else {
		err = h.Scheduler.DisableTask(name)
	}
	if err != nil {
		RespondError(c, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"task_name": name,
		"enabled":   *req.Enabled,
	})
}

// TriggerTask runs a task immediately
func (h *SchedulerHandler) TriggerTask(c *gin.Context) {
	name := c.Param("name")

	if err := h.Scheduler.TriggerTask(name); err != nil {
		RespondError(c, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"ok":        true,
		"task_name": name,
	})
}

// LocalOnly rejects requests that do not come from a loopback address
func LocalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(c.ClientIP())
		if ip == nil || !ip.IsLoopback() {
			RespondError(c, http.StatusForbidden, ErrForbidden, "Only allowed from localhost")
			c.Abort()
			return
		}
		c.Next()
	}
}
