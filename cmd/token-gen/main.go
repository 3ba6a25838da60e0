package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"pay-watch.backend/internal/config"
	"pay-watch.backend/pkg/jwt"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	printfFn   = fmt.Printf
)

func main() {
	service := flag.String("service", "verifier", "service name embedded in the token")
	flag.Parse()

	if err := run(*service); err != nil {
		log.Fatal(err)
	}
}

// run mints a short-lived service token for the webhook endpoint, signed
// with the same secret the server validates against.
func run(service string) error {
	if service == "" {
		return fmt.Errorf("service name must not be empty")
	}

	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := loadCfg()

	svc := jwt.NewJWTService(cfg.Webhook.JWTSecret, cfg.Webhook.TokenExpiry)
	token, err := svc.GenerateServiceToken(service)
	if err != nil {
		return fmt.Errorf("failed to generate service token: %w", err)
	}

	printfFn("SERVICE=%s\n", service)
	printfFn("EXPIRES_IN=%s\n", cfg.Webhook.TokenExpiry)
	printfFn("TOKEN=%s\n", token)
	return nil
}
