package main

import (
	"flag"
	"fmt"
	"log"

	"pay-watch.backend/pkg/crypto"
)

var (
	printfFn      = fmt.Printf
	generateKeyFn = crypto.GenerateAPIKey
	hashKeyFn     = crypto.HashAPIKey
)

func main() {
	count := flag.Int("n", 1, "number of keys to generate")
	flag.Parse()

	if err := run(*count); err != nil {
		log.Fatal(err)
	}
}

// run prints count fresh API keys with their bcrypt hashes. The key goes to
// the caller, the hash goes into API_KEY_HASHES; the key itself is never
// stored anywhere.
func run(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid n: %d (must be at least 1)", count)
	}

	for i := 0; i < count; i++ {
		key, err := generateKeyFn()
		if err != nil {
			return fmt.Errorf("failed to generate api key: %w", err)
		}
		hash, err := hashKeyFn(key)
		if err != nil {
			return fmt.Errorf("failed to hash api key: %w", err)
		}
		printfFn("API_KEY=%s\n", key)
		printfFn("API_KEY_HASH=%s\n", hash)
	}

	printfFn("\nHand the key to the caller; append the hash to API_KEY_HASHES.\n")
	return nil
}
