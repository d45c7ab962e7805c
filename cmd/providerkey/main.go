package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aryanguptajsm/fluxora/internal/adapter/repo"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag      string
		providerFlag string
		deleteFlag   bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to the provider's environment variable)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderFal, "Provider to configure ("+strings.Join(providerNames(), ", ")+")")
	flag.BoolVar(&deleteFlag, "delete", false, "Remove the stored key instead of saving one")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	envName, ok := credentials.EnvVars[provider]
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envName))
	}
	if key == "" && !deleteFlag {
		fmt.Fprintf(os.Stderr, "%s key is required via -key or %s\n", provider, envName)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", provider).Logger()
	runner := infra.NewSQLRunner(pool, logger)

	// integration_tokens is created together with the journal tables.
	if err := repo.NewJobRepository(runner).EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare tables: %v\n", err)
		os.Exit(1)
	}
	store := credentials.NewStore(runner)
	if deleteFlag {
		deleted, err := store.DeleteToken(ctx, provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to delete %s api key: %v\n", provider, err)
			os.Exit(1)
		}
		if !deleted {
			fmt.Printf("no stored %s API key\n", provider)
			return
		}
		fmt.Printf("%s API key deleted\n", provider)
		return
	}
	if err := store.SetToken(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored successfully\n", provider)
}

func providerNames() []string {
	names := make([]string, 0, len(credentials.EnvVars))
	for name := range credentials.EnvVars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
