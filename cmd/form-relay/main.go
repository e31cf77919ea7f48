// Package main is the entry point for the form relay server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/form-relay/internal/config"
	"github.com/shineum/form-relay/internal/provider"
	"github.com/shineum/form-relay/internal/provider/graph"
	"github.com/shineum/form-relay/internal/provider/mailgun"
	"github.com/shineum/form-relay/internal/provider/resend"
	"github.com/shineum/form-relay/internal/provider/sendgrid"
	"github.com/shineum/form-relay/internal/provider/ses"
	"github.com/shineum/form-relay/internal/provider/stdout"
	"github.com/shineum/form-relay/internal/relay"
	"github.com/shineum/form-relay/internal/server"
	formtls "github.com/shineum/form-relay/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	envPath := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A missing credential does not stop the server; the relay answers every
	// submission with a configuration error instead.
	prov, err := selectProvider(ctx, cfg)
	if err != nil {
		if !errors.Is(err, provider.ErrNotConfigured) {
			slog.Error("failed to create email provider", "error", err)
			os.Exit(1)
		}
		slog.Error("no email provider available, submissions will be refused", "error", err)
	}

	var providerName string
	if prov != nil {
		providerName = prov.Name()
	}

	srvCfg := server.ServerConfig{
		ListenAddr:     cfg.HTTP.Listen,
		Path:           cfg.HTTP.Path,
		ProviderName:   providerName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Handler: relay.NewHandler(prov, relay.Options{
			Sender:            cfg.Form.Sender,
			DefaultSubject:    cfg.Form.DefaultSubject,
			MaxBodySize:       cfg.HTTP.MaxBodySize,
			MaxAttachmentSize: cfg.Form.MaxAttachmentSize,
		}),
	}

	tlsMode := "disabled"
	if cfg.TLS.Enabled {
		tlsConfig, err := formtls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, certHosts(cfg.HTTP.Listen)...)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
		srvCfg.TLSConfig = tlsConfig
		tlsMode = formtls.Mode(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}

	if len(cfg.HTTP.AllowedOrigins) == 0 {
		slog.Warn("CORS_ALLOWED_ORIGINS is empty, browsers on other origins will be blocked")
	}

	srv := server.New(srvCfg)

	slog.Info("starting form-relay",
		"listen", cfg.HTTP.Listen,
		"path", cfg.HTTP.Path,
		"provider", providerName,
		"allowed_origins", cfg.HTTP.AllowedOrigins,
		"tls_mode", tlsMode,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	// Blocks until the context is cancelled
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("form-relay stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// selectProvider chooses the email delivery backend. An explicit PROVIDER
// wins; otherwise the first backend with credentials is used, in the order
// resend, graph, ses, sendgrid, mailgun. The stdout printer is never
// auto-selected.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = detectProvider(cfg)
		if name == "" {
			return nil, fmt.Errorf("%w: set PROVIDER or provider credentials", provider.ErrNotConfigured)
		}
		slog.Info("email provider auto-detected", "provider", name)
	}

	switch name {
	case "resend":
		p, err := resend.New(resend.ResendProviderConfig{APIKey: cfg.Resend.APIKey})
		if err != nil {
			return nil, err
		}
		slog.Info("using Resend provider")
		return p, nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, fmt.Errorf("%w: SES_REGION and SES_SENDER are required", provider.ErrNotConfigured)
		}
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		return p, nil

	case "graph":
		p, err := graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using Microsoft Graph provider", "sender", cfg.Graph.Sender)
		return p, nil

	case "sendgrid":
		p, err := sendgrid.New(sendgrid.SendGridProviderConfig{
			APIKey: cfg.SendGrid.APIKey,
			Sender: cfg.SendGrid.Sender,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using SendGrid provider", "sender", cfg.SendGrid.Sender)
		return p, nil

	case "mailgun":
		p, err := mailgun.New(mailgun.MailgunProviderConfig{
			APIKey:  cfg.Mailgun.APIKey,
			Domain:  cfg.Mailgun.Domain,
			APIBase: cfg.Mailgun.APIBase,
			Sender:  cfg.Mailgun.Sender,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using Mailgun provider", "domain", cfg.Mailgun.Domain)
		return p, nil

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func detectProvider(cfg *config.Config) string {
	switch {
	case cfg.ResendConfigured():
		return "resend"
	case cfg.GraphConfigured():
		return "graph"
	case cfg.SESConfigured():
		return "ses"
	case cfg.SendGridConfigured():
		return "sendgrid"
	case cfg.MailgunConfigured():
		return "mailgun"
	default:
		return ""
	}
}

// certHosts returns the SANs for a self-signed certificate: localhost plus
// the listen host when one is bound explicitly.
func certHosts(listen string) []string {
	hosts := []string{"localhost", "127.0.0.1"}
	host, _, err := net.SplitHostPort(listen)
	if err != nil || host == "" || host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || host == "::" {
		return hosts
	}
	return append(hosts, host)
}
