package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/austinhellerrepo/postgresapi/callback"
	"github.com/austinhellerrepo/postgresapi/postgres"
	"github.com/austinhellerrepo/postgresapi/queue"
)

type serviceConfig struct {
	HTTPAddr  string
	Verbosity int
	Queue     queue.Config
	Postgres  postgres.Config
	Callback  callbackConfig
}

type callbackConfig struct {
	URL    string // Result webhook; empty logs results locally
	Secret string // HS256 secret; when set results are posted as signed tokens
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		HTTPAddr:  ":8080",
		Verbosity: 3,
		Queue:     queue.DefaultConfig,
		Postgres:  postgres.DefaultConfig,
	}
}

// loadConfig layers the optional TOML file under any explicitly set flags.
func loadConfig(ctx *cli.Context) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	if file := ctx.String(configFileFlag.Name); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config file %s: %w", file, err)
		}
	}

	if ctx.IsSet(listenAddrFlag.Name) {
		cfg.HTTPAddr = ctx.String(listenAddrFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	if ctx.IsSet(pollIntervalFlag.Name) {
		cfg.Queue.PollInterval = ctx.Duration(pollIntervalFlag.Name)
	}
	if ctx.IsSet(pgHostFlag.Name) {
		cfg.Postgres.Host = ctx.String(pgHostFlag.Name)
	}
	if ctx.IsSet(pgPortFlag.Name) {
		cfg.Postgres.Port = ctx.Int(pgPortFlag.Name)
	}
	if ctx.IsSet(pgUserFlag.Name) {
		cfg.Postgres.User = ctx.String(pgUserFlag.Name)
	}
	if ctx.IsSet(pgPasswordFlag.Name) {
		cfg.Postgres.Password = ctx.String(pgPasswordFlag.Name)
	}
	if ctx.IsSet(callbackURLFlag.Name) {
		cfg.Callback.URL = ctx.String(callbackURLFlag.Name)
	}
	if ctx.IsSet(callbackSecretFlag.Name) {
		cfg.Callback.Secret = ctx.String(callbackSecretFlag.Name)
	}
	return cfg, nil
}

// sink builds the configured result sink.
func (c serviceConfig) sink() callback.Callback {
	if c.Callback.URL == "" {
		return callback.Func(func(data any) error {
			log.Info("command result", "result", data)
			return nil
		})
	}
	remote := callback.NewHTTPRemoteAPI(nil)
	if c.Callback.Secret != "" {
		return callback.NewJWTCallback(c.Callback.URL, c.Callback.Secret, remote)
	}
	return callback.NewWebhookCallback(c.Callback.URL, remote)
}
