package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Status reports uptime, connected clients, the pixel revision and process resource use.
// Resource fields are left zero when the platform does not expose them.
func (s *Server) Status() StatusData {
	uptime := time.Since(s.started)
	status := StatusData{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Clients:       s.hub.ClientCount(),
		Revision:      s.revision.Load(),
		Goroutines:    runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			status.RSSBytes = info.RSS
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			status.CPUPercent = cpu
		}
	} else {
		s.log.WithError(err).Debug("process stats unavailable")
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.SystemMemoryUsed = vm.UsedPercent
	}
	return status
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status())
}

func (s *Server) handleGetStatus(client *WSClient, message WSMessage) error {
	client.reply(WSMessage{
		Type:      MessageTypeStatus,
		RequestID: message.RequestID,
		Data:      s.Status(),
		Timestamp: time.Now(),
	})
	return nil
}
