package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/gaiasync/internal/app"
	"github.com/dmitrijs2005/gaiasync/internal/config"
	"github.com/dmitrijs2005/gaiasync/internal/shared"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.Username != "" && cfg.Password == "" {
		password, err := promptPassword(cfg.Username)
		if err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		cfg.Password = password
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := string(raw)
	shared.WipeByteArray(raw)
	return password, nil
}
