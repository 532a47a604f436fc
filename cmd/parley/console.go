// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/parley-foundation/parley/credential"
	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/lib/config"
	"github.com/parley-foundation/parley/realtime"
	"github.com/parley-foundation/parley/session"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	badgeStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0"))

	categoryColors = map[realtime.Category]lipgloss.Color{
		realtime.CategoryPhilosophical: lipgloss.Color("13"),
		realtime.CategoryMath:          lipgloss.Color("10"),
		realtime.CategoryTechnology:    lipgloss.Color("12"),
		realtime.CategoryGeneral:       lipgloss.Color("8"),
	}
)

// consoleRenderer prints transcript items and classification badges.
// Styling is dropped when stdout is not a terminal so piped output
// stays clean.
type consoleRenderer struct {
	styled bool
}

func newConsoleRenderer() *consoleRenderer {
	return &consoleRenderer{styled: term.IsTerminal(int(os.Stdout.Fd()))}
}

func (r *consoleRenderer) item(item realtime.Item) {
	speaker := item.Role
	if r.styled {
		switch item.Role {
		case realtime.RoleUser:
			speaker = userStyle.Render(speaker)
		case realtime.RoleAssistant:
			speaker = assistantStyle.Render(speaker)
		}
	}
	fmt.Printf("%s: %s\n", speaker, item.Content)
}

func (r *consoleRenderer) classification(result realtime.Classification) {
	label := string(result.Category)
	if !result.Recognized {
		label = strings.TrimSpace(result.RawLabel)
	}
	if r.styled {
		// Unrecognized labels keep the neutral color regardless of text.
		label = badgeStyle.Background(categoryColors[result.Category]).Render(label)
	} else {
		label = "[" + label + "]"
	}
	fmt.Printf("%s %s %s\n", result.ReceivedAt.Format("15:04:05"), label, result.TriggeringItemID)
}

func runConsole(ctx context.Context, configuration config.Config, broker *credential.Broker, httpClient *http.Client, logger *slog.Logger) error {
	renderer := newConsoleRenderer()

	media := session.SilenceAcquirer()
	if configuration.AudioSource != "" {
		media = session.FileAcquirer(configuration.AudioSource)
	}

	sess := session.New(session.Options{
		Broker:     broker,
		Negotiator: session.NewNegotiator(httpClient, configuration.BaseURL, clock.Real(), logger),
		Media:      media,
		ICEServers: configuration.ICEServers,
		Logger:     logger,
		Handlers: session.Handlers{
			ChannelOpen: func() { fmt.Println("session ready, type a message") },
			Item:        renderer.item,
			Classified:  renderer.classification,
		},
	})
	defer sess.Disconnect()

	if err := sess.Connect(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(ctx, sess, renderer, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

var errQuit = errors.New("quit")

func handleLine(ctx context.Context, sess *session.Session, renderer *consoleRenderer, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case line == "/transcript":
		for _, item := range sess.Transcript().Items() {
			renderer.item(item)
		}
		return nil
	case line == "/classifications":
		for _, result := range sess.Classifications().Results() {
			renderer.classification(result)
		}
		return nil
	case line == "/reconnect":
		return sess.Connect(ctx)
	case strings.HasPrefix(line, "/"):
		fmt.Println("commands: /quit /transcript /classifications /reconnect")
		return nil
	}

	if err := sess.SendText(line); err != nil {
		if errors.Is(err, session.ErrChannelNotOpen) {
			fmt.Println("control channel not open yet; try again or /reconnect")
			return nil
		}
		return err
	}
	return nil
}
