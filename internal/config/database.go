package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"opencrud-gen/internal/sqltype"
)

const redacted = "xxxxx"

// Dialect resolves the configured driver.
func (d *DatabaseConfig) Dialect() (sqltype.Dialect, error) {
	return sqltype.ParseDialect(d.Driver)
}

// DataSource returns the DSN handed to sql.Open, with the separately
// configured password applied. MySQL DSNs always get parseTime and UTC.
func (d *DatabaseConfig) DataSource() (string, error) {
	dialect, err := d.Dialect()
	if err != nil {
		return "", err
	}
	dsn := strings.TrimSpace(d.DSN)
	if dsn == "" {
		return "", fmt.Errorf("database.dsn is empty")
	}

	switch dialect {
	case sqltype.MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		if d.Password != "" {
			cfg.Passwd = d.Password
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	case sqltype.Postgres:
		if d.Password == "" {
			return dsn, nil
		}
		if isURL(dsn) {
			u, err := url.Parse(dsn)
			if err != nil {
				return "", fmt.Errorf("database.dsn is invalid: %w", err)
			}
			user := ""
			if u.User != nil {
				user = u.User.Username()
			}
			u.User = url.UserPassword(user, d.Password)
			return u.String(), nil
		}
		return dsn + " password=" + quotePQValue(d.Password), nil
	default:
		return dsn, nil
	}
}

// DatabaseName returns the schema to introspect: database.schema when set,
// otherwise the database named in a MySQL DSN. An empty result means the
// connection's current database (or public on postgres).
func (d *DatabaseConfig) DatabaseName() string {
	if s := strings.TrimSpace(d.Schema); s != "" {
		return s
	}
	if dialect, err := d.Dialect(); err == nil && dialect == sqltype.MySQL {
		if cfg, err := mysql.ParseDSN(strings.TrimSpace(d.DSN)); err == nil {
			return cfg.DBName
		}
	}
	return ""
}

var pqPasswordPattern = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// RedactedDSN returns the DSN with any password masked, for logging.
func (d *DatabaseConfig) RedactedDSN() string {
	dsn := strings.TrimSpace(d.DSN)
	dialect, err := d.Dialect()
	if err != nil || dsn == "" {
		return dsn
	}
	switch dialect {
	case sqltype.MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return redacted
		}
		if cfg.Passwd != "" {
			cfg.Passwd = redacted
		}
		return cfg.FormatDSN()
	case sqltype.Postgres:
		if isURL(dsn) {
			u, err := url.Parse(dsn)
			if err != nil {
				return redacted
			}
			return u.Redacted()
		}
		return pqPasswordPattern.ReplaceAllString(dsn, "${1}"+redacted)
	default:
		return dsn
	}
}

func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// quotePQValue quotes a libpq keyword/value connection string value.
func quotePQValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
