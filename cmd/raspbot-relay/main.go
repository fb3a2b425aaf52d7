// raspbot-relay: fleet relay for raspbot robots
// Accepts robot websockets and exposes a small REST API operators and
// dashboards use to watch and steer the fleet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	intlog "github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/remote"
)

var (
	port     = flag.Int("port", 8090, "HTTP server port")
	logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	intlog.Init(*logLevel)

	fmt.Println()
	fmt.Println("📡 Raspbot relay")
	fmt.Println("   Fleet gateway for raspbot robots")
	fmt.Println()

	app := fiber.New(fiber.Config{
		AppName:               "raspbot-relay",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	hub := remote.NewHub()
	hub.RegisterRoutes(app)
	api := app.Group("/api")
	hub.RegisterAPIRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"robots": hub.RobotCount(),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		stats := hub.Stats()
		return c.SendString(fmt.Sprintf(`# HELP raspbot_relay_robots Connected robot count
# TYPE raspbot_relay_robots gauge
raspbot_relay_robots %d

# HELP raspbot_relay_messages_received Total messages received
# TYPE raspbot_relay_messages_received counter
raspbot_relay_messages_received %d

# HELP raspbot_relay_messages_sent Total messages sent
# TYPE raspbot_relay_messages_sent counter
raspbot_relay_messages_sent %d

# HELP raspbot_relay_commands_forwarded Total commands forwarded to robots
# TYPE raspbot_relay_commands_forwarded counter
raspbot_relay_commands_forwarded %d
`, stats.Robots, stats.MessagesReceived, stats.MessagesSent, stats.CommandsForwarded))
	})

	go func() {
		addr := fmt.Sprintf(":%d", *port)
		log.Printf("🚀 Relay listening on %s", addr)
		log.Printf("   Robots:    ws://localhost:%d/ws/robot", *port)
		log.Printf("   Health:    http://localhost:%d/health", *port)
		log.Printf("   Fleet API: http://localhost:%d/api/robots", *port)
		log.Println()

		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
