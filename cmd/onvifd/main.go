// Command onvifd runs the ONVIF services daemon: it loads
// configuration, wires the device/media/ptz/imaging services to the
// dispatcher, starts the HTTP server loop, the WS-Discovery responder,
// and the PTZ continuous-move reaper, and shuts down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/bufpool"
	"github.com/onvifd/camera-onvif-daemon/internal/common"
	"github.com/onvifd/camera-onvif-daemon/internal/config"
	"github.com/onvifd/camera-onvif-daemon/internal/credstore"
	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/discovery"
	"github.com/onvifd/camera-onvif-daemon/internal/health"
	"github.com/onvifd/camera-onvif-daemon/internal/httpx"
	"github.com/onvifd/camera-onvif-daemon/internal/logging"
	"github.com/onvifd/camera-onvif-daemon/internal/memtrack"
	"github.com/onvifd/camera-onvif-daemon/internal/onvifserver"
	"github.com/onvifd/camera-onvif-daemon/internal/platform"
	"github.com/onvifd/camera-onvif-daemon/internal/services/device"
	"github.com/onvifd/camera-onvif-daemon/internal/services/imaging"
	"github.com/onvifd/camera-onvif-daemon/internal/services/media"
	"github.com/onvifd/camera-onvif-daemon/internal/services/ptz"
	"github.com/onvifd/camera-onvif-daemon/internal/workerpool"
)

func main() {
	configPath := flag.String("config", "/etc/onvifd/onvifd.ini", "path to the INI configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "onvifd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logging.ConfigureGlobalLogging(cfg.ToLoggingConfig()); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	logger := logging.GetLogger("onvifd")
	logger.Info("starting onvifd")

	creds, err := credstore.Load(cfg.ONVIF.CredentialsFile)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if cfg.ONVIF.AuthEnabled && !creds.Has(cfg.ONVIF.Username) {
		if err := creds.SetUser(cfg.ONVIF.Username, cfg.ONVIF.Password); err != nil {
			return fmt.Errorf("seed default credential: %w", err)
		}
	}

	host := cfg.ONVIF.Host
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, cfg.ONVIF.HTTPPort)

	deviceInfo := platform.DeviceInfo{
		Manufacturer:    "ONVIFD",
		Model:           "Camera-Daemon",
		FirmwareVersion: "1.0.0",
		SerialNumber:    "000000",
		HardwareID:      "onvifd-generic",
	}
	plat := platform.NewRealPlatform(deviceInfo)

	deviceSvc := device.New(plat, creds, baseURL)
	mediaSvc := media.New(plat, host, cfg.ONVIF.HTTPPort)
	ptzSvc := ptz.New(plat)
	defer ptzSvc.Close()
	imagingSvc := imaging.New(plat, platform.ImagingEffects{
		Brightness:   cfg.Imaging.Brightness,
		Contrast:     cfg.Imaging.Contrast,
		Saturation:   cfg.Imaging.Saturation,
		Sharpness:    cfg.Imaging.Sharpness,
		Hue:          cfg.Imaging.Hue,
		DayNightMode: cfg.Imaging.DayNightMode,
	}, imaging.DefaultOptions())

	registry := dispatch.NewRegistry()
	registry.Register("device", deviceSvc.RegisterEntry("/onvif/device_service"))
	registry.Register("media", mediaSvc.RegisterEntry("/onvif/media_service"))
	registry.Register("ptz", ptzSvc.RegisterEntry("/onvif/ptz_service"))
	registry.Register("imaging", imagingSvc.RegisterEntry("/onvif/imaging_service"))
	registry.Register("snapshot", mediaSvc.RegisterSnapshotEntry("/onvif/snapshot_service"))

	pool := workerpool.New(cfg.ONVIF.MaxWorkers, time.Duration(cfg.ONVIF.ReadTimeoutSec)*time.Second)
	bufPool := bufpool.New(cfg.ONVIF.BufferCount, cfg.ONVIF.BufferSizeBytes)
	tracker := memtrack.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}

	server := onvifserver.New(onvifserver.Config{
		Addr:         fmt.Sprintf("%s:%d", cfg.ONVIF.Host, cfg.ONVIF.HTTPPort),
		ReadTimeout:  time.Duration(cfg.ONVIF.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.ONVIF.WriteTimeoutSec) * time.Second,
		Auth: httpx.AuthConfig{
			Enabled:     cfg.ONVIF.AuthEnabled,
			Realm:       cfg.ONVIF.Realm,
			Credentials: creds,
		},
	}, registry, pool, bufPool, tracker)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Serve(ctx) }()

	responder := discovery.New("", baseURL+"/onvif/device_service", cfg.Discovery.Scopes, cfg.Discovery.MulticastIface)
	if err := responder.Start(ctx); err != nil {
		logger.WithError(err).Warn("WS-Discovery responder failed to start, continuing without it")
	} else {
		defer responder.Stop()
	}

	healthMonitor := health.NewMonitor()
	healthMonitor.Register("worker_pool", func() health.ComponentStatus {
		stats := pool.GetStats()
		status := health.StatusHealthy
		if stats.ActiveWorkers >= stats.MaxWorkers {
			status = health.StatusDegraded
		}
		return health.ComponentStatus{
			Name:        "worker_pool",
			Status:      status,
			LastChecked: time.Now(),
			Details: map[string]interface{}{
				"active_workers": stats.ActiveWorkers,
				"max_workers":    stats.MaxWorkers,
				"queued_tasks":   stats.QueuedTasks,
				"failed_tasks":   stats.FailedTasks,
			},
		}
	})
	healthMonitor.Register("buffer_pool", func() health.ComponentStatus {
		stats := bufPool.Stats()
		status := health.StatusHealthy
		if stats.UtilizationPercent >= 80 {
			status = health.StatusDegraded
		}
		return health.ComponentStatus{
			Name:        "buffer_pool",
			Status:      status,
			LastChecked: time.Now(),
			Details: map[string]interface{}{
				"utilization_percent": stats.UtilizationPercent,
				"misses":              stats.Misses,
				"peak":                stats.Peak,
				"bytes_live":          tracker.BytesLive(),
			},
		}
	})
	healthMonitor.Register("discovery", func() health.ComponentStatus {
		status := health.StatusHealthy
		message := ""
		if !responder.Running() {
			status = health.StatusDegraded
			message = "WS-Discovery responder is not running"
		}
		return health.ComponentStatus{Name: "discovery", Status: status, Message: message, LastChecked: time.Now()}
	})

	healthServer, err := health.NewServer(health.DefaultConfig(), healthMonitor, logging.GetLogger("health"))
	if err != nil {
		return fmt.Errorf("construct health server: %w", err)
	}
	go func() {
		if err := healthServer.Serve(ctx); err != nil {
			logger.WithError(err).Warn("health server exited with error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("server loop exited with error")
		}
	}

	cancel()
	server.Close()
	if err := common.StopWithTimeout(pool, 10*time.Second); err != nil {
		logger.WithError(err).Warn("worker pool did not drain cleanly")
	}
	if err := common.StopWithTimeout(healthServer, 5*time.Second); err != nil {
		logger.WithError(err).Warn("health server did not shut down cleanly")
	}

	logger.Info("onvifd stopped")
	return nil
}
