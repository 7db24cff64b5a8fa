package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/greenhouse-monitor/internal/api/http"
	"github.com/i474232898/greenhouse-monitor/internal/config"
	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
	"github.com/i474232898/greenhouse-monitor/internal/greenhouse/publishers"
	"github.com/i474232898/greenhouse-monitor/internal/metrics"
	"github.com/i474232898/greenhouse-monitor/internal/scheduler"
	"github.com/i474232898/greenhouse-monitor/internal/store"
	"github.com/i474232898/greenhouse-monitor/internal/stream"
)

type backend interface {
	greenhouse.SensorStore
	greenhouse.DeviceStore
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Sample and device storage.
	var db backend
	switch cfg.StoreDriver {
	case "sqlite":
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer sqliteStore.Close()
		db = sqliteStore
		log.Printf("INFO: using sqlite store at %s", cfg.SQLitePath)
	default:
		db = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	// Tick observers: log line, metrics, websocket feed, then the outbound sinks.
	m := metrics.NewMetrics()
	hub := stream.NewHub(cfg.StreamMaxClients)
	bridge := stream.NewBridge(hub)
	observers := []greenhouse.Observer{greenhouse.LogObserver{}, m, bridge}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSender := publishers.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSender.Close()
		pub := publishers.NewPublisher("kafka", kafkaSender, publishers.EncodingJSON)
		observers = append(observers, pub)
		log.Printf("INFO: publisher %s: sending samples to topic %s", pub.Name(), cfg.Kafka.Topic)
	}

	var mqttClient mqtt.Client
	if cfg.MQTT.Broker != "" {
		mqttClient, err = publishers.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Fatalf("failed to connect to mqtt broker: %v", err)
		}
		defer mqttClient.Disconnect(250)
		sender := publishers.NewMQTTSender(mqttClient, cfg.MQTT.SensorTopic)
		pub := publishers.NewPublisher("mqtt", sender, publishers.Encoding(cfg.MQTT.Encoding))
		observers = append(observers, pub)
		log.Printf("INFO: publisher %s: sending %s samples to topic %s", pub.Name(), cfg.MQTT.Encoding, cfg.MQTT.SensorTopic)
	}

	// Simulator owning weather, baseline and device mirror.
	sim := greenhouse.NewSimulator(db, db,
		greenhouse.WithRandSource(greenhouse.NewRandSource(cfg.Simulation.Seed)),
		greenhouse.WithLocation(cfg.Simulation.Location),
		greenhouse.WithObservers(observers...),
	)

	if mqttClient != nil {
		if err := publishers.NewDeviceSubscriber(sim).Subscribe(mqttClient, cfg.MQTT.DeviceTopic); err != nil {
			log.Fatalf("failed to subscribe to %s: %v", cfg.MQTT.DeviceTopic, err)
		}
	}

	// Scheduler that periodically ticks the simulator.
	sched := scheduler.New(sim, scheduler.Config{
		NormalInterval: cfg.Simulation.NormalInterval,
		FastInterval:   cfg.Simulation.FastInterval,
	})
	defer sched.Shutdown()
	sched.OnChange(bridge.OnStatus)

	if err := sched.ScheduleDailyRollup(cfg.Simulation.RollupAt); err != nil {
		log.Fatalf("failed to schedule daily rollup: %v", err)
	}
	if delay := *cfg.Simulation.AutoStartDelay; delay > 0 {
		sched.AutoStart(delay)
		log.Printf("INFO: simulation auto-starts in %s", delay)
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "greenhouse-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"service":         "greenhouse-monitor",
			"state":           sched.Mode(),
			"intervalMs":      sched.Interval().Milliseconds(),
			"streamClients":   hub.ClientCount(),
			"droppedMessages": hub.Dropped(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, sched, sim, m.Handler())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Live sample feed.
	var wsServer *http.Server
	if cfg.WSAddr != "" {
		wsServer = &http.Server{
			Addr:              cfg.WSAddr,
			Handler:           stream.NewMux(stream.NewHandler(hub, sched.Status)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("websocket server stopped: %v", err)
			}
		}()
	}

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if wsServer != nil {
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error during websocket shutdown: %v", err)
		}
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
