// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-foundation/parley/credential"
)

// Server handles the browser-facing HTTP surface.
type Server struct {
	broker *credential.Broker
	logger *slog.Logger
}

// NewServer creates a server brokering credentials through broker.
func NewServer(broker *credential.Broker, logger *slog.Logger) *Server {
	return &Server{broker: broker, logger: logger}
}

// Handler returns the route tree.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/", s.handleIndex)
	router.Get("/session", s.handleSession)
	router.Get("/healthz", s.handleHealth)
	return router
}

// sessionResponse is the credential endpoint's body. Exactly one of
// ClientSecret or Error is set.
type sessionResponse struct {
	ClientSecret *clientSecret `json:"client_secret,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type clientSecret struct {
	Value string `json:"value"`
}

// handleSession issues a fresh ephemeral credential for the browser
// client. Failures are reported in-band as a 200 with an error field so
// the page can render them instead of tripping generic fetch handling.
func (s *Server) handleSession(writer http.ResponseWriter, request *http.Request) {
	issued, err := s.broker.Issue(request.Context())
	if err != nil {
		s.logger.Warn("credential issuance failed", "error", err)
		writeJSON(s.logger, writer, sessionResponse{Error: issuanceErrorMessage(err)})
		return
	}
	writeJSON(s.logger, writer, sessionResponse{ClientSecret: &clientSecret{Value: issued.Secret}})
}

// issuanceErrorMessage maps issuance failures to the message shown to
// the browser client. Provider messages pass through verbatim.
func issuanceErrorMessage(err error) string {
	if errors.Is(err, credential.ErrMissingConfig) {
		return "OPENAI_API_KEY is not configured on the server"
	}
	var issuance *credential.IssuanceError
	if errors.As(err, &issuance) {
		return issuance.ProviderMessage
	}
	return err.Error()
}

func (s *Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	writeJSON(s.logger, writer, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Write([]byte(indexHTML))
}

func writeJSON(logger *slog.Logger, writer http.ResponseWriter, body any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		logger.Warn("writing response failed", "error", err)
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Parley</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 640px; margin: 2rem auto; }
        #log { white-space: pre-wrap; border: 1px solid #ccc; padding: 1rem; min-height: 8rem; }
        .badge { padding: 0 0.4em; border-radius: 3px; color: #fff; }
    </style>
</head>
<body>
<h1>Parley</h1>
<p>Fetch a session credential from <code>/session</code>, then connect
from your client of choice. This page only verifies the broker.</p>
<button id="check">Check credential broker</button>
<div id="log"></div>
<script>
    const log = (line) => {
        document.getElementById("log").textContent += line + "\n";
    };
    document.getElementById("check").onclick = async () => {
        const response = await fetch("/session");
        const body = await response.json();
        if (body.error) {
            log("broker error: " + body.error);
            return;
        }
        log("ephemeral credential issued (" + body.client_secret.value.length + " chars)");
    };
</script>
</body>
</html>
`
