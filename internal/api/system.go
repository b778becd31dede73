package api

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/process"
	"github.com/urbangulal/urbangulal/internal/webserver"
	"go.uber.org/zap"
)

var startedAt = time.Now()

type diskInfo struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	FreeText    string  `json:"freeText"`
	UsedPercent float64 `json:"usedPercent"`
}

type systemInfo struct {
	Hostname   string    `json:"hostname"`
	Platform   string    `json:"platform"`
	HostUptime uint64    `json:"hostUptime"`
	StartedAt  time.Time `json:"startedAt"`
	MemRSS     uint64    `json:"memRss"`
	MemRSSText string    `json:"memRssText"`
	Database   string    `json:"database"`
	ReportDisk *diskInfo `json:"reportDisk,omitempty"`
	WhatsApp   string    `json:"whatsapp"`
}

func registerSystemRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/system", h.systemStatus, webserver.AdminAuthenticated)
}

// systemStatus reports host and process figures; probes that fail are left empty.
func (h *handlers) systemStatus(c echo.Context) error {
	info := systemInfo{
		StartedAt: startedAt,
		Database:  h.Config.Database.Type,
		WhatsApp:  string(h.WhatsApp.State()),
	}
	if hi, err := host.Info(); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform + " " + hi.PlatformVersion
		info.HostUptime = hi.Uptime
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			info.MemRSS = mem.RSS
			info.MemRSSText = bytes.Format(int64(mem.RSS))
		}
	}
	if h.Reports != nil {
		if du, err := disk.Usage(h.Reports.Dir()); err == nil {
			info.ReportDisk = &diskInfo{
				Path:        du.Path,
				Total:       du.Total,
				Free:        du.Free,
				FreeText:    bytes.Format(int64(du.Free)),
				UsedPercent: du.UsedPercent,
			}
		} else {
			zap.L().Debug("report dir disk usage unavailable", zap.Error(err))
		}
	}
	return ok(c, info)
}
