package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/team-portal-chat/modules/activity"
	"github.com/example/team-portal-chat/modules/broadcast"
	chatdomain "github.com/example/team-portal-chat/modules/chat"
	"github.com/example/team-portal-chat/modules/profiles"
	"github.com/example/team-portal-chat/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Team Portal Chat - Realtime Core ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	port := envOr("PORT", "3000")
	redisAddr := os.Getenv("REDIS_ADDR")
	historyLimit := envInt("CHAT_HISTORY_LIMIT", chatdomain.DefaultHistoryLimit)

	// Create modules
	profilesModule := profiles.NewModule(
		profiles.NewStaticDirectory(seedProfiles()),
		redisAddr,
		5*time.Minute,
		app.Logger(),
	)
	broadcastModule := broadcast.NewModule()
	chatModule := chatdomain.NewModule(
		broadcastModule.Hub(),
		profilesModule,
		historyLimit,
		app.Logger(),
	)
	serverModule := wsserver.NewModule(":"+port, chatModule.Service(), broadcastModule.Hub(), app.Logger())
	activityModule := activity.NewModule(app.Logger())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - profiles: identity decoration (no chat dependencies)
	// - broadcast: WebSocket hub and per-connection delivery queues
	// - chat: core domain (registry, presence, router; emits chat events)
	// - activity: event consumer (usage counters over the chat events)
	// - wsserver: driving adapter (Fiber HTTP/WebSocket server)
	app.Register(profilesModule)
	app.Register(broadcastModule)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(serverModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(port, redisAddr)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// seedProfiles is the built-in directory used when no upstream identity
// store is wired in. Usernames not listed here simply get no decoration.
func seedProfiles() map[string]profiles.Profile {
	return map[string]profiles.Profile{
		"morgan": {Title: "Ops Lead", Tier: "staff"},
		"riley":  {Title: "Intel Analyst"},
		"casey":  {Title: "ML Engineer", Tier: "senior"},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func printStartupInfo(port, redisAddr string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	if redisAddr != "" {
		log.Printf("  - Profile cache: redis at %s", redisAddr)
	} else {
		log.Println("  - Profile cache: disabled (set REDIS_ADDR to enable)")
	}
	log.Println("")
	log.Println("Channels: general, ops, intel, ai-lab (fixed set)")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                        - Health check")
	log.Println("  GET    /api/v1/channels               - List channels with member counts")
	log.Println("  GET    /api/v1/channels/:name/history - Recent message history")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Client frames: join, switch_channel, send_message")
	log.Println("  Server events: history_snapshot, new_message, member_list, error")
	log.Println("")
	log.Println("Terminal client: go run ./cmd/chat-client -user <name>")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
