package main

import (
	"context"
	"net/http"
	"time"

	"plaza-client/internal/client"
	"plaza-client/internal/config"
	"plaza-client/internal/logging"
	"plaza-client/internal/profile"
	"plaza-client/internal/statusapi"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx := context.Background()
	store := openStore(ctx, cfg.Client.ProfileDSN)

	cli := client.New(cfg.Client, store, newLogDispatcher())

	server := &http.Server{
		Addr:              cfg.Client.StatusAddr,
		Handler:           statusapi.NewRouter(cli),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Client.StatusAddr).Msg("status api listening")
		log.Fatal().Err(server.ListenAndServe()).Msg("status api stopped")
	}()

	if cfg.Client.RoomID != "" {
		// Queued join; the session manager sends it once the socket is up.
		if err := cli.Join(ctx, cfg.Client.RoomID, cfg.Client.PlayerName, ""); err != nil {
			log.Fatal().Err(err).Msg("initial join failed")
		}
	}

	log.Info().Str("ws_url", cfg.Client.SessionWSURL).Msg("client starting")
	cli.Run(ctx)
}

func openStore(ctx context.Context, dsn string) profile.Store {
	if dsn == "" {
		log.Warn().Msg("no profile dsn set, using in-memory store")
		return profile.NewMemory()
	}
	st, err := profile.NewPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("profile store init failed")
	}
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("profile store ping failed")
	}
	return st
}
