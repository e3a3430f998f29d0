package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"strompris/internal/config"
	"strompris/internal/dataprocessing"
	"strompris/pkg/contracts"
)

// DatasetSource exposes the current dataset to health checks
type DatasetSource interface {
	Dataset() (*dataprocessing.Dataset, error)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	repoURL   string
	paths     config.PathsConfig
	datasets  DatasetSource
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// Ready reports whether every dependency is ready
func (s HealthStatus) Ready() bool {
	return s.Status == "ready"
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(repoURL string, paths config.PathsConfig, datasets DatasetSource, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	info := contracts.GetVersionInfo()
	logger.Info("HealthService initialized",
		slog.String("version", info.Version),
		slog.String("repo_url", repoURL))

	return &HealthService{
		version:   info.Version,
		repoURL:   repoURL,
		paths:     paths,
		datasets:  datasets,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck is ready once a dataset has been loaded
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["dataset"] = hs.checkDatasetHealth()
	status.Services["data_dir"] = hs.checkDataDirHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	result := map[string]interface{}{
		"version":      info.Version,
		"full_version": contracts.GetFullVersionString(),
		"prerelease":   contracts.IsPrerelease(),
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if info.BuildTime != "" {
		result["build_time"] = info.BuildTime
	}
	if info.GitCommit != "" {
		result["git_commit"] = info.GitCommit
	}

	return result
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: "not_ready", Message: "price service not configured"}
	}

	ds, err := hs.datasets.Dataset()
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d records from %s", ds.Len(), ds.Source()),
		Uptime:  time.Since(ds.LoadedAt()).Round(time.Second).String(),
	}
}

func (hs *HealthService) checkDataDirHealth() ServiceHealth {
	if hs.paths.DataDir == "" {
		return ServiceHealth{Status: "ready", Message: "no data directory configured"}
	}
	if _, err := os.Stat(hs.paths.DataDir); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not accessible: %v", err),
		}
	}
	return ServiceHealth{Status: "ready", Message: "Data directory is accessible"}
}
