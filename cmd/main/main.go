package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptofolio/src/apiclient"
	"cryptofolio/src/bus"
	"cryptofolio/src/config"
	"cryptofolio/src/interfaces"
	"cryptofolio/src/logger"
	"cryptofolio/src/server"
	"cryptofolio/src/storage"
	"cryptofolio/src/stream"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Secrets come from the environment; .env is optional
	_ = godotenv.Load()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if v := os.Getenv("CRYPTOFOLIO_BACKEND_URL"); v != "" {
		config.Backend.BaseURL = v
	}
	if v := os.Getenv("CRYPTOFOLIO_NATS_URL"); v != "" {
		config.Bus.URL = v
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)

	// 2. Setup Storage
	var store interfaces.IStorage

	switch config.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresStore(config.MConfig, appLogger)
	case "memory":
		store = storage.NewMemoryStore(config.MConfig)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteStore(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to initialize storage: %v", err)
	}

	// 3. Setup Components
	client := apiclient.NewAPIClient(config.MConfig, store, appLogger)
	prices := stream.NewPriceStreamService(config.MConfig, store, store, appLogger)

	// A failed refresh or explicit logout tears the stream down
	client.OnLogout(prices.AuthLost)

	// 4. Establish a session if none survived from a previous run
	if store.AccessToken() == "" {
		if err := signIn(client, appLogger); err != nil {
			appLogger.Critical("Sign-in failed: %v", err)
		}
	}

	// 5. Gateway and exchangers
	gateway := server.NewGateway(config.MConfig, prices, appLogger)

	exchangers := []interfaces.IDataExchanger{gateway}
	if config.Bus.Enabled {
		natsEx := bus.NewNATSExchanger(config.MConfig, appLogger)
		if err := natsEx.Start(); err != nil {
			appLogger.Error("NATS exchanger failed to start: %v", err)
		} else {
			exchangers = append(exchangers, natsEx)
		}
	}

	go func() {
		if err := gateway.Start(); err != nil {
			appLogger.Error("Gateway failed: %v", err)
		}
	}()

	// 6. Open the price stream now that auth is ready
	updates, unsubscribe := prices.Subscribe()
	defer unsubscribe()
	prices.AuthReady()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting fan-out loop...")

	for {
		select {
		case batch, ok := <-updates:
			if !ok {
				appLogger.Info("Price stream subscription closed.")
				return
			}
			for _, ex := range exchangers {
				ex.Broadcast(batch)
			}

		case <-cleanup.C:
			if err := store.CleanupOldData(); err != nil {
				appLogger.Error("Cleanup failed: %v", err)
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			prices.Stop()
			for _, ex := range exchangers {
				if err := ex.Stop(); err != nil {
					appLogger.Error("Exchanger stop failed: %v", err)
				}
			}
			store.Close()
			return
		}
	}
}

// -----------------------------------------------------------------------------

// signIn authenticates with credentials from the environment, completing the
// two-factor step when the account requires it.
func signIn(client *apiclient.APIClient, appLogger *logger.Logger) error {
	email := os.Getenv("CRYPTOFOLIO_EMAIL")
	password := os.Getenv("CRYPTOFOLIO_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("CRYPTOFOLIO_EMAIL and CRYPTOFOLIO_PASSWORD must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if session.TwoFactorRequired {
		code := os.Getenv("CRYPTOFOLIO_TOTP_CODE")
		if code == "" {
			return fmt.Errorf("account requires two-factor: set CRYPTOFOLIO_TOTP_CODE")
		}
		if _, err := client.VerifyTwoFactor(ctx, code); err != nil {
			return err
		}
	}

	appLogger.Info("Signed in as %s", email)
	return nil
}
