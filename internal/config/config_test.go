package config

import (
	"os"
	"path/filepath"
	"testing"
)

// envVars lists every variable read by applyEnvVars.
var envVars = []string{
	"PROVIDER",
	"HTTP_LISTEN", "HTTP_PATH", "HTTP_MAX_BODY_SIZE", "CORS_ALLOWED_ORIGINS",
	"FORM_SENDER", "FORM_DEFAULT_SUBJECT", "MAX_ATTACHMENT_SIZE",
	"RESEND_API_KEY",
	"SES_REGION", "SES_ACCESS_KEY_ID", "SES_SECRET_ACCESS_KEY", "SES_SENDER",
	"GRAPH_TENANT_ID", "GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET", "GRAPH_SENDER",
	"SENDGRID_API_KEY", "SENDGRID_SENDER",
	"MAILGUN_API_KEY", "MAILGUN_DOMAIN", "MAILGUN_API_BASE", "MAILGUN_SENDER",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "" {
		t.Errorf("Provider: got %q, want empty", cfg.Provider)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("HTTP.Listen: got %q, want %q", cfg.HTTP.Listen, ":8080")
	}
	if cfg.HTTP.Path != "/api/send-form" {
		t.Errorf("HTTP.Path: got %q, want %q", cfg.HTTP.Path, "/api/send-form")
	}
	if cfg.HTTP.MaxBodySize != 10485760 {
		t.Errorf("HTTP.MaxBodySize: got %d, want %d", cfg.HTTP.MaxBodySize, 10485760)
	}
	if len(cfg.HTTP.AllowedOrigins) != 0 {
		t.Errorf("HTTP.AllowedOrigins: got %v, want none", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Form.MaxAttachmentSize != 12000000 {
		t.Errorf("Form.MaxAttachmentSize: got %d, want %d", cfg.Form.MaxAttachmentSize, 12000000)
	}
	if cfg.Form.Sender != "" {
		t.Errorf("Form.Sender: got %q, want empty so the provider picks the sender", cfg.Form.Sender)
	}
	if cfg.Form.DefaultSubject != "New Submission" {
		t.Errorf("Form.DefaultSubject: got %q, want %q", cfg.Form.DefaultSubject, "New Submission")
	}
	if cfg.Resend.APIKey != "" {
		t.Errorf("Resend.APIKey: got %q, want empty", cfg.Resend.APIKey)
	}
	if cfg.TLS.Enabled {
		t.Error("TLS.Enabled: got true, want false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER", "Resend")
	t.Setenv("HTTP_LISTEN", ":9090")
	t.Setenv("HTTP_PATH", "/submit")
	t.Setenv("HTTP_MAX_BODY_SIZE", "2048")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("FORM_SENDER", "Site <site@example.com>")
	t.Setenv("FORM_DEFAULT_SUBJECT", "Contact")
	t.Setenv("MAX_ATTACHMENT_SIZE", "1000")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("SES_REGION", "us-east-1")
	t.Setenv("SES_SENDER", "ses@example.com")
	t.Setenv("GRAPH_TENANT_ID", "tid-123")
	t.Setenv("SENDGRID_API_KEY", "SG.key")
	t.Setenv("SENDGRID_SENDER", "sg@example.com")
	t.Setenv("MAILGUN_API_KEY", "mg-key")
	t.Setenv("MAILGUN_DOMAIN", "mg.example.com")
	t.Setenv("MAILGUN_API_BASE", "https://api.eu.mailgun.net/v3")
	t.Setenv("MAILGUN_SENDER", "forms@mg.example.com")
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "resend" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "resend")
	}
	if cfg.HTTP.Listen != ":9090" {
		t.Errorf("HTTP.Listen: got %q, want %q", cfg.HTTP.Listen, ":9090")
	}
	if cfg.HTTP.Path != "/submit" {
		t.Errorf("HTTP.Path: got %q, want %q", cfg.HTTP.Path, "/submit")
	}
	if cfg.HTTP.MaxBodySize != 2048 {
		t.Errorf("HTTP.MaxBodySize: got %d, want %d", cfg.HTTP.MaxBodySize, 2048)
	}
	wantOrigins := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[0] != wantOrigins[0] || cfg.HTTP.AllowedOrigins[1] != wantOrigins[1] {
		t.Errorf("HTTP.AllowedOrigins: got %v, want %v", cfg.HTTP.AllowedOrigins, wantOrigins)
	}
	if cfg.Form.Sender != "Site <site@example.com>" {
		t.Errorf("Form.Sender: got %q", cfg.Form.Sender)
	}
	if cfg.Form.DefaultSubject != "Contact" {
		t.Errorf("Form.DefaultSubject: got %q", cfg.Form.DefaultSubject)
	}
	if cfg.Form.MaxAttachmentSize != 1000 {
		t.Errorf("Form.MaxAttachmentSize: got %d, want 1000", cfg.Form.MaxAttachmentSize)
	}
	if !cfg.ResendConfigured() {
		t.Error("ResendConfigured: got false, want true")
	}
	if !cfg.SESConfigured() {
		t.Error("SESConfigured: got false, want true")
	}
	if cfg.GraphConfigured() {
		t.Error("GraphConfigured: got true with only a tenant id")
	}
	if !cfg.SendGridConfigured() {
		t.Error("SendGridConfigured: got false, want true")
	}
	if !cfg.MailgunConfigured() {
		t.Error("MailgunConfigured: got false, want true")
	}
	if cfg.Mailgun.APIBase != "https://api.eu.mailgun.net/v3" {
		t.Errorf("Mailgun.APIBase: got %q", cfg.Mailgun.APIBase)
	}
	if cfg.SendGrid.Sender != "sg@example.com" {
		t.Errorf("SendGrid.Sender: got %q", cfg.SendGrid.Sender)
	}
	if cfg.Mailgun.Sender != "forms@mg.example.com" {
		t.Errorf("Mailgun.Sender: got %q", cfg.Mailgun.Sender)
	}
	if !cfg.TLS.Enabled {
		t.Error("TLS.Enabled: got false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_MAX_BODY_SIZE", "ten megabytes")
	t.Setenv("MAX_ATTACHMENT_SIZE", "lots")
	t.Setenv("TLS_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.MaxBodySize != defaultMaxBodySize {
		t.Errorf("HTTP.MaxBodySize: got %d, want default", cfg.HTTP.MaxBodySize)
	}
	if cfg.Form.MaxAttachmentSize != defaultMaxAttachmentSize {
		t.Errorf("Form.MaxAttachmentSize: got %d, want default", cfg.Form.MaxAttachmentSize)
	}
	if cfg.TLS.Enabled {
		t.Error("TLS.Enabled: got true, want false")
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown provider, got nil")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	configPath := writeFile(t, "config.yaml", `
provider: graph
http:
  listen: ":3000"
  path: "/forms/contact"
  max_body_size: 5242880
  allowed_origins:
    - "https://site.example.com"
form:
  sender: "Contact <contact@example.com>"
  max_attachment_size: 4000000
graph:
  tenant_id: "yaml-tenant"
  client_id: "yaml-client"
  client_secret: "yaml-secret"
  sender: "yaml@example.com"
tls:
  enabled: true
  cert_file: "/yaml/cert.pem"
  key_file: "/yaml/key.pem"
logging:
  level: "warn"
`)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "graph" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "graph")
	}
	if cfg.HTTP.Listen != ":3000" {
		t.Errorf("HTTP.Listen: got %q, want %q", cfg.HTTP.Listen, ":3000")
	}
	if cfg.HTTP.Path != "/forms/contact" {
		t.Errorf("HTTP.Path: got %q", cfg.HTTP.Path)
	}
	if cfg.HTTP.MaxBodySize != 5242880 {
		t.Errorf("HTTP.MaxBodySize: got %d, want %d", cfg.HTTP.MaxBodySize, 5242880)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://site.example.com" {
		t.Errorf("HTTP.AllowedOrigins: got %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Form.Sender != "Contact <contact@example.com>" {
		t.Errorf("Form.Sender: got %q", cfg.Form.Sender)
	}
	// Unset keys keep their defaults.
	if cfg.Form.DefaultSubject != "New Submission" {
		t.Errorf("Form.DefaultSubject: got %q, want default", cfg.Form.DefaultSubject)
	}
	if cfg.Form.MaxAttachmentSize != 4000000 {
		t.Errorf("Form.MaxAttachmentSize: got %d", cfg.Form.MaxAttachmentSize)
	}
	if !cfg.GraphConfigured() {
		t.Error("GraphConfigured: got false, want true")
	}
	if !cfg.TLS.Enabled || cfg.TLS.CertFile != "/yaml/cert.pem" {
		t.Errorf("TLS: got %+v", cfg.TLS)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	configPath := writeFile(t, "config.yaml", `
http:
  listen: ":3000"
resend:
  api_key: "re_yaml"
logging:
  level: "warn"
`)

	t.Setenv("HTTP_LISTEN", ":9000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Listen != ":9000" {
		t.Errorf("HTTP.Listen: got %q, want %q (env should override YAML)", cfg.HTTP.Listen, ":9000")
	}
	// Empty env var should NOT override YAML value
	if cfg.Resend.APIKey != "re_yaml" {
		t.Errorf("Resend.APIKey: got %q, want %q (empty env should not override YAML)", cfg.Resend.APIKey, "re_yaml")
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level: got %q, want %q (env should override YAML)", cfg.Logging.Level, "error")
	}
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	t.Parallel()

	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	t.Parallel()

	configPath := writeFile(t, "config.yaml", "{{invalid yaml")
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "known provider", mutate: func(c *Config) { c.Provider = "mailgun" }, wantErr: false},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "smtp" }, wantErr: true},
		{name: "zero body size", mutate: func(c *Config) { c.HTTP.MaxBodySize = 0 }, wantErr: true},
		{name: "negative attachment size", mutate: func(c *Config) { c.Form.MaxAttachmentSize = -1 }, wantErr: true},
		{name: "relative path", mutate: func(c *Config) { c.HTTP.Path = "api/send-form" }, wantErr: true},
		{name: "cert without key", mutate: func(c *Config) { c.TLS.CertFile = "/cert.pem" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "FORM_RELAY_DOTENV_TEST"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-dotenv\n")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv(key); got != "from-dotenv" {
		t.Errorf("%s: got %q, want %q", key, got, "from-dotenv")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Parallel()

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file: got %v, want nil", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("empty path: got %v, want nil", err)
	}
}

func TestConfiguredHelpers(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if cfg.ResendConfigured() || cfg.SESConfigured() || cfg.GraphConfigured() ||
		cfg.SendGridConfigured() || cfg.MailgunConfigured() {
		t.Error("empty config should report no provider configured")
	}

	cfg.SES.Region = "eu-west-1"
	if cfg.SESConfigured() {
		t.Error("SESConfigured: region alone should not be enough")
	}
	cfg.Mailgun.APIKey = "key"
	if cfg.MailgunConfigured() {
		t.Error("MailgunConfigured: key alone should not be enough")
	}
}
