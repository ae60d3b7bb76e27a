package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string           `json:"status"`
	DB        string           `json:"db"`
	Scheduler *schedulerHealth `json:"scheduler,omitempty"`
}

type schedulerHealth struct {
	Status   string `json:"status"`
	LastTick string `json:"last_tick,omitempty"`
}

// Health reports DB reachability and, when this process drives the lifecycle
// loop, whether the loop ticked within twice its run interval.
func (s *Server) Health(c *gin.Context) {
	resp := healthResponse{Status: "ok", DB: "ok"}
	status := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		resp.Status = "degraded"
		resp.DB = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if s.scheduler != nil {
		sched := &schedulerHealth{Status: "ok"}
		lastTick := s.scheduler.LastTick()
		switch {
		case lastTick.IsZero():
			// Startup grace: the first tick has not happened yet.
			sched.Status = "starting"
		case s.clock.Now().Sub(lastTick) > 2*s.scheduler.RunInterval():
			sched.Status = "stalled"
			sched.LastTick = lastTick.Format(time.RFC3339)
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		default:
			sched.LastTick = lastTick.Format(time.RFC3339)
		}
		resp.Scheduler = sched
	}

	c.JSON(status, resp)
}
