package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"opencrud-gen/internal/naming"
	"opencrud-gen/internal/sqltype"
)

// Command selects which sections Validate requires.
type Command string

const (
	CommandGenerate   Command = "generate"
	CommandIntrospect Command = "introspect"
	CommandServe      Command = "serve"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) fail(field, msg, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: msg, Hint: hint})
}

func (r *ValidationResult) warn(field, msg, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: msg, Hint: hint})
}

// UsesDatabase reports whether the preview server reads its datamodel from
// the database instead of a file.
func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.Datamodel.Path) == ""
}

// Validate checks the configuration for the given command.
func (c *Config) Validate(cmd Command) *ValidationResult {
	result := &ValidationResult{}

	switch cmd {
	case CommandGenerate:
		c.Datamodel.validate(result)
	case CommandIntrospect:
		c.Database.validate(result)
	case CommandServe:
		if c.UsesDatabase() {
			if strings.TrimSpace(c.Database.DSN) == "" {
				result.fail("datamodel.path", "either a datamodel file or a database is required",
					"set --datamodel.path, or --database.driver and --database.dsn")
			} else {
				c.Database.validate(result)
			}
		} else if strings.TrimSpace(c.Database.DSN) != "" {
			result.warn("database.dsn", "datamodel.path is set, the database is not introspected",
				"unset datamodel.path to serve the inferred datamodel")
		}
		c.Server.validate(result)
	}

	c.Observability.validate(result)
	validateNaming(result, c.Naming)
	return result
}

func (d *DatamodelConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(d.Path) == "" {
		result.fail("datamodel.path", "datamodel path is required", "pass --datamodel.path or set OCG_DATAMODEL_PATH")
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	dialect, err := d.Dialect()
	if err != nil {
		result.fail("database.driver", err.Error(), "valid values are: mysql, postgres, sqlite")
		return
	}
	if strings.TrimSpace(d.DSN) == "" {
		result.fail("database.dsn", "database DSN is required", "pass --database.dsn or --database.dsn_file")
		return
	}

	switch dialect {
	case sqltype.MySQL:
		if _, err := mysql.ParseDSN(d.DSN); err != nil {
			result.fail("database.dsn", fmt.Sprintf("database.dsn is invalid: %v", err),
				"use user:pass@tcp(host:port)/dbname")
		} else if d.DatabaseName() == "" {
			result.warn("database.schema", "no database selected",
				"include /dbname in the DSN or set database.schema")
		}
	case sqltype.Postgres:
		if isURL(d.DSN) {
			if _, err := url.Parse(d.DSN); err != nil {
				result.fail("database.dsn", fmt.Sprintf("database.dsn is invalid: %v", err),
					"use postgres://user@host/dbname or key=value pairs")
			}
		}
	case sqltype.SQLite:
		if d.PasswordPrompt {
			result.warn("database.password_prompt", "sqlite databases have no password", "")
		}
	}

	if d.Pool.MaxOpen < 0 {
		result.fail("database.pool.max_open", "max_open cannot be negative", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.fail("database.pool.max_idle", "max_idle cannot be negative", "")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.warn("database.pool.max_idle", "max_idle is greater than max_open",
			"idle connections will be limited to max_open")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.fail("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}

	if s.SchemaRefreshMinInterval <= 0 {
		result.fail("server.schema_refresh_min_interval", "schema_refresh_min_interval must be greater than 0", "")
	}
	if s.SchemaRefreshMaxInterval < s.SchemaRefreshMinInterval {
		result.fail("server.schema_refresh_max_interval",
			"schema_refresh_max_interval must not be less than schema_refresh_min_interval", "")
	}

	switch s.TLSMode {
	case "", "off", "auto":
	case "file":
		if s.TLSCertFile == "" || s.TLSKeyFile == "" {
			result.fail("server.tls_mode", "tls_mode file requires tls_cert_file and tls_key_file", "")
		}
	default:
		result.fail("server.tls_mode", fmt.Sprintf("invalid TLS mode %q", s.TLSMode), "valid values are: off, auto, file")
	}

	if s.CORSEnabled {
		if len(s.CORSAllowedOrigins) == 0 {
			result.warn("server.cors_allowed_origins", "CORS is enabled but no origins are allowed",
				"set server.cors_allowed_origins")
		}
		for _, origin := range s.CORSAllowedOrigins {
			if origin == "*" && s.CORSAllowCredentials {
				result.fail("server.cors_allow_credentials", "credentials cannot be allowed for wildcard origins",
					"list explicit origins or disable cors_allow_credentials")
			}
		}
	}
	if s.CORSMaxAge < 0 {
		result.fail("server.cors_max_age", "cors_max_age cannot be negative", "")
	}

	for field, d := range map[string]bool{
		"server.read_timeout":         s.ReadTimeout < 0,
		"server.write_timeout":        s.WriteTimeout < 0,
		"server.idle_timeout":         s.IdleTimeout < 0,
		"server.shutdown_timeout":     s.ShutdownTimeout < 0,
		"server.health_check_timeout": s.HealthCheckTimeout < 0,
	} {
		if d {
			result.fail(field, "timeout cannot be negative", "")
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.fail("observability.logging.level", fmt.Sprintf("invalid log level %q", o.Logging.Level),
			"valid values are: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.fail("observability.logging.format", fmt.Sprintf("invalid log format %q", o.Logging.Format),
			"valid values are: json, text")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.fail("observability.trace_sample_ratio", "trace_sample_ratio must be between 0 and 1", "")
	}
	if o.TracingEnabled || o.Logging.ExportsEnabled {
		o.OTLP.validate("observability.otlp", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.fail(prefix+".protocol", fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			"valid values are: grpc, http/protobuf")
	}
	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.fail(prefix+".endpoint", fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
			"use host:port or a full URL")
	}
	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.fail(prefix+".compression", fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			"valid values are: none, gzip")
	}
	if o.RetryMaxAttempts < 0 {
		result.fail(prefix+".retry_max_attempts", "retry_max_attempts cannot be negative", "")
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}

func validateNaming(result *ValidationResult, cfg naming.Config) {
	check := func(field string, overrides map[string]string) {
		for from, to := range overrides {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				result.fail(field, fmt.Sprintf("override %q -> %q has an empty side", from, to), "")
			}
		}
	}
	check("naming.plural_overrides", cfg.PluralOverrides)
	check("naming.singular_overrides", cfg.SingularOverrides)
}
