// postgresapi serves a background-executing Postgres command queue: POSTed
// entry-point JSON becomes queued database commands, and every execution
// result is delivered to the configured callback sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"

	"github.com/austinhellerrepo/postgresapi/dbqueue"
	"github.com/austinhellerrepo/postgresapi/postgres"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	listenAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP listening address",
		Value: ":8080",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	pollIntervalFlag = &cli.DurationFlag{
		Name:  "queue.poll",
		Usage: "Poll interval of the queue's executor and promoter loops",
	}
	pgHostFlag = &cli.StringFlag{
		Name:  "pg.host",
		Usage: "Postgres host",
	}
	pgPortFlag = &cli.IntFlag{
		Name:  "pg.port",
		Usage: "Postgres port",
	}
	pgUserFlag = &cli.StringFlag{
		Name:  "pg.user",
		Usage: "Postgres role",
	}
	pgPasswordFlag = &cli.StringFlag{
		Name:  "pg.password",
		Usage: "Postgres password",
	}
	callbackURLFlag = &cli.StringFlag{
		Name:  "callback.url",
		Usage: "Result webhook URL (results are logged when unset)",
	}
	callbackSecretFlag = &cli.StringFlag{
		Name:  "callback.secret",
		Usage: "HS256 secret; when set results are posted as signed tokens",
	}
)

func main() {
	app := &cli.App{
		Name:   "postgresapi",
		Usage:  "background-executing Postgres command queue",
		Action: run,
		Flags: []cli.Flag{
			configFileFlag,
			listenAddrFlag,
			verbosityFlag,
			pollIntervalFlag,
			pgHostFlag,
			pgPortFlag,
			pgUserFlag,
			pgPasswordFlag,
			callbackURLFlag,
			callbackSecretFlag,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(cfg.Verbosity), false)
	log.SetDefault(log.NewLogger(handler))

	q := dbqueue.New(cfg.Queue, postgres.NewClient(cfg.Postgres), cfg.sink())
	defer q.Dispose()

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: cors.Default().Handler(newHandler(q)),
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	log.Info("postgresapi listening", "addr", cfg.HTTPAddr, "postgres", cfg.Postgres.String(), "queue", cfg.Queue.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "err", err)
	}
	if err := q.WaitUntilEmpty(); err != nil {
		log.Warn("queue drain failed", "err", err)
	}
	return nil
}
