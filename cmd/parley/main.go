// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Parley is a realtime voice and text session client. It brokers a
// short-lived session credential from the provider, negotiates a
// peer-to-peer media transport, and drives the conversation over the
// session's control channel while a sidecar classifies each user turn
// out of band.
//
// Two modes of operation:
//
// Console mode (default): connects a session and reads user turns from
// stdin. The transcript and classification results render inline.
//
// Serve mode (--serve): runs the browser-facing HTTP server, exposing
// the client page and the /session credential endpoint. No session is
// connected by the server itself; browsers negotiate their own.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/parley-foundation/parley/credential"
	"github.com/parley-foundation/parley/httpapi"
	"github.com/parley-foundation/parley/lib/config"
	"github.com/parley-foundation/parley/lib/secret"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a development convenience; absence is normal.
	godotenv.Load()

	var (
		configPath string
		listen     string
		model      string
		voice      string
		baseURL    string
		audioPath  string
		apiKeyFile string
		serve      bool
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("parley", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $PARLEY_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address for --serve")
	flagSet.StringVar(&model, "model", "", "realtime model")
	flagSet.StringVar(&voice, "voice", "", "synthesized voice")
	flagSet.StringVar(&baseURL, "base-url", "", "provider API root")
	flagSet.StringVar(&audioPath, "audio", "", "Ogg Opus file used as the microphone feed")
	flagSet.StringVar(&apiKeyFile, "api-key-file", "", "file holding the provider API key (default: $OPENAI_API_KEY)")
	flagSet.BoolVar(&serve, "serve", false, "run the browser-facing HTTP server instead of the console")
	flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	configuration, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		configuration.Listen = listen
	}
	if model != "" {
		configuration.Model = model
	}
	if voice != "" {
		configuration.Voice = voice
	}
	if baseURL != "" {
		configuration.BaseURL = baseURL
	}
	if audioPath != "" {
		configuration.AudioSource = audioPath
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiKey, err := loadAPIKey(apiKeyFile)
	if err != nil {
		return err
	}
	if apiKey != nil {
		defer apiKey.Close()
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	broker := credential.NewBroker(httpClient, configuration.BaseURL,
		configuration.Model, configuration.Voice, apiKey, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve {
		return runServer(ctx, configuration, broker, logger)
	}
	return runConsole(ctx, configuration, broker, httpClient, logger)
}

// loadAPIKey reads the provider key from the given file, or from the
// OPENAI_API_KEY environment variable when no file is named. A missing
// key is not an error here: the broker reports it per attempt, so the
// server can start without one and the operator sees the message on the
// first session request.
func loadAPIKey(path string) (*secret.Buffer, error) {
	if path != "" {
		return secret.FromPath(path)
	}
	return secret.FromEnv("OPENAI_API_KEY")
}

func runServer(ctx context.Context, configuration config.Config, broker *credential.Broker, logger *slog.Logger) error {
	server := &http.Server{
		Addr:    configuration.Listen,
		Handler: httpapi.NewServer(broker, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "address", configuration.Listen)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Parley realtime session client.

By default, connects a session and reads user turns from stdin. Each
user turn is answered in the conversation and, separately, classified
out of band; classification results render as colored badges without
ever entering the conversation.

The provider API key comes from the OPENAI_API_KEY environment variable
or --api-key-file. It is used only to mint short-lived session
credentials and never appears in logs or output.

Usage:
  parley [flags]

Examples:
  # Interactive console session
  parley --audio mic-capture.ogg

  # Browser-facing credential server
  parley --serve --listen 127.0.0.1:8000

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
