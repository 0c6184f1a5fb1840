package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snoopyylion/hojo-radio-sub001/internal/client"
	"github.com/snoopyylion/hojo-radio-sub001/internal/db"
	"github.com/snoopyylion/hojo-radio-sub001/internal/hub"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
	"github.com/snoopyylion/hojo-radio-sub001/internal/routes"
)

const usage = `Usage:
	- start
	- listen
	- migrate [up/down/drop]
`

func main() {
	if len(os.Args) == 1 {
		fmt.Print(usage)
		return
	}
	envConfig := models.ReadEnvConfig()
	switch os.Args[1] {
	case "start":
		server := NotifyServer{EnvConfig: envConfig}
		server.Setup()
		server.Run()
	case "listen":
		listen(envConfig)
	case "migrate":
		if len(os.Args) < 3 {
			fmt.Print(usage)
			return
		}
		var err error
		switch os.Args[2] {
		case "up":
			err = db.MigrateUp(envConfig.DatabaseURL)
		case "down":
			err = db.MigrateDown(envConfig.DatabaseURL)
		case "drop":
			err = db.Drop(envConfig.DatabaseURL)
		default:
			fmt.Print(usage)
			return
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("Done")
	default:
		fmt.Print(usage)
	}
}

type NotifyServer struct {
	models.EnvConfig
	addr       string
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	database   db.SharedDB
	hub        *hub.Hub
}

func (server *NotifyServer) setupLogger() {
	var writer io.Writer
	if server.Debug {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		writer = os.Stdout
	}
	log := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	if !server.Debug {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	server.logger = log
}
func (server *NotifyServer) setupDB() {
	err := db.MigrateUp(server.DatabaseURL)
	if err != nil {
		server.logger.Fatal().Err(err).Send()
	}
	database, err := db.Connect(&server.EnvConfig)
	if err != nil {
		server.logger.Fatal().AnErr("Connecting to db", err).Send()
	}
	server.database = database
}
func (server *NotifyServer) setupHub() {
	server.hub = hub.New(server.logger)
}
func (server *NotifyServer) setupRouter() {
	store := db.NewNotificationService(&server.database)
	server.router = routes.NewRouter(&server.EnvConfig, store, server.hub, server.logger)
}
func (server *NotifyServer) setupHttpServer() {
	server.addr = fmt.Sprintf(":%s", server.EnvConfig.Port)
	server.httpServer = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
	}
}
func (server *NotifyServer) Setup() {
	server.setupLogger()
	server.setupDB()
	server.setupHub()
	server.setupRouter()
	server.setupHttpServer()
}
func (server *NotifyServer) Shutdown() {
	if err := server.httpServer.Shutdown(context.Background()); err != nil {
		server.logger.Error().
			Err(err).
			Msg("Error shutting down")
	}
	server.database.Close()
}
func (server *NotifyServer) Run() {
	server.logger.Info().Str("server_address", server.addr).Msg("Server is starting")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go server.httpServer.ListenAndServe()
	server.logger.Info().Msg("Ready")

	<-ctx.Done()
	stop() // Stop listening for signals
	server.logger.Info().Msg("Shutting down gracefully")
	server.Shutdown()
}

// listen runs the client engine against a hub and prints whatever would
// surface, standing in for the web frontend.
func listen(envConfig models.EnvConfig) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	userID := os.Getenv("HOJO_USER_ID")
	if userID == "" {
		fmt.Println("HOJO_USER_ID is required for listen")
		return
	}
	hubURL := os.Getenv("HOJO_HUB_URL")
	if hubURL == "" {
		hubURL = "ws://localhost:" + envConfig.Port
	}
	apiURL := os.Getenv("HOJO_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:" + envConfig.Port
	}

	engine := client.NewEngine(client.Config{
		HubURL:     hubURL,
		APIBaseURL: apiURL,
		UserID:     userID,
		Token:      envConfig.IngestToken,
	}, nil, nil, client.LogNotifier{Log: logger}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logger.Info().Str("hub_url", hubURL).Str("user_id", userID).Msg("Listening")
	engine.Run(ctx)
	logger.Info().Msg("Bye")
}
