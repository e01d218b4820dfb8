package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/actilink/actilink-api/internal/platform/auth/tokens"
	"github.com/actilink/actilink-api/internal/platform/config"
	"github.com/actilink/actilink-api/internal/platform/logger"
)

// Tiny dev-only session token issuer.
//
// It signs HS256 tokens with the same JWT_SECRET/JWT_ISSUER the API verifies,
// so a subject can be exercised without registering an account.
//
//	devjwt -sub alice            print one token and exit
//	devjwt -serve                serve GET /token?sub=alice
func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "", "subject (user id) to mint a token for")
	serve := flag.Bool("serve", false, "serve GET /token?sub=... instead of printing once")
	addr := flag.String("addr", ":5556", "listen address for -serve")
	flag.Parse()

	log := logger.Init(os.Getenv("LOG_LEVEL"), "console")

	cfg, err := config.LoadTokenConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}
	tm := tokens.New(cfg)

	if !*serve {
		if strings.TrimSpace(*sub) == "" {
			flag.Usage()
			os.Exit(2)
		}
		tok, _, err := tm.Issue(strings.TrimSpace(*sub))
		if err != nil {
			log.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		tok, exp, err := tm.Issue(sub)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": tok,
			"sub":   sub,
			"iss":   cfg.Issuer,
			"exp":   exp.Unix(),
		})
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", *addr).Str("iss", cfg.Issuer).Dur("ttl", cfg.TTL).Msg("devjwt listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
