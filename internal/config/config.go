package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Backup   BackupConfig
	Schedule ScheduleSpec
	Notify   NotifyConfig
}

type AppConfig struct {
	Name          string
	LogLevel      string
	LogFile       string
	DashboardAddr string
}

type PostgresConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	Databases []string
}

type BackupConfig struct {
	Dir              string
	RetentionDays    int
	LogRetentionDays int
	Compress         bool
	Format           domain.FormatSelection
}

type NotifyConfig struct {
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads the daemon configuration from the process environment.
func Load() (*Config, error) {
	v := newEnv()

	rawInterval := strings.TrimSpace(v.GetString("BACKUP_INTERVAL"))
	rawTime := strings.TrimSpace(v.GetString("BACKUP_TIME"))
	schedule, err := ParseSchedule(rawInterval, rawTime)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	pg, err := loadPostgres(v)
	if err != nil {
		return nil, err
	}
	retention, err := strconv.Atoi(strings.TrimSpace(v.GetString("BACKUP_RETENTION_DAYS")))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKUP_RETENTION_DAYS %q: %w", v.GetString("BACKUP_RETENTION_DAYS"), err)
	}
	logRetention := retention
	if raw := strings.TrimSpace(v.GetString("LOG_RETENTION_DAYS")); raw != "" {
		logRetention, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_RETENTION_DAYS %q: %w", raw, err)
		}
	}

	cfg := Config{
		App: AppConfig{
			Name:          v.GetString("APP_NAME"),
			LogLevel:      v.GetString("LOG_LEVEL"),
			LogFile:       v.GetString("LOG_FILE"),
			DashboardAddr: v.GetString("DASHBOARD_ADDR"),
		},
		Postgres: pg,
		Backup: BackupConfig{
			Dir:              v.GetString("BACKUP_DIR"),
			RetentionDays:    retention,
			LogRetentionDays: logRetention,
			Compress:         strings.EqualFold(strings.TrimSpace(v.GetString("ENABLE_COMPRESSION")), "true"),
			Format:           domain.FormatSelection(strings.ToLower(strings.TrimSpace(v.GetString("BACKUP_FORMAT")))),
		},
		Schedule: schedule,
		Notify: NotifyConfig{
			TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   v.GetString("TELEGRAM_CHAT_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadRestore reads only what a restore needs: the PostgreSQL connection,
// the database list and logging. Schedule and backup settings are ignored.
func LoadRestore() (*Config, error) {
	v := newEnv()

	pg, err := loadPostgres(v)
	if err != nil {
		return nil, err
	}
	if pg.Port <= 0 || pg.Port > 65535 {
		return nil, fmt.Errorf("invalid config: PG_PORT out of range: %d", pg.Port)
	}

	return &Config{
		App: AppConfig{
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Postgres: pg,
		Backup:   BackupConfig{Dir: v.GetString("BACKUP_DIR")},
	}, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func loadPostgres(v *viper.Viper) (PostgresConfig, error) {
	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("PG_PORT")))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid PG_PORT %q: %w", v.GetString("PG_PORT"), err)
	}
	return PostgresConfig{
		Host:      v.GetString("PG_HOST"),
		Port:      port,
		User:      v.GetString("PG_USER"),
		Password:  v.GetString("PG_PASSWORD"),
		Databases: strings.Split(v.GetString("PG_DATABASE"), ","),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "pgkeeper")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PG_HOST", "localhost")
	v.SetDefault("PG_PORT", "5432")
	v.SetDefault("PG_USER", "postgres")
	v.SetDefault("PG_PASSWORD", "postgres")
	v.SetDefault("PG_DATABASE", "postgres")
	v.SetDefault("BACKUP_DIR", "/backups")
	v.SetDefault("BACKUP_RETENTION_DAYS", "7")
	v.SetDefault("ENABLE_COMPRESSION", "true")
	v.SetDefault("BACKUP_FORMAT", "both")
	v.SetDefault("BACKUP_TIME", "03:00")
	v.SetDefault("BACKUP_INTERVAL", "daily")
}

func (c *Config) Validate() error {
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must be >= 0, got %d", c.Backup.RetentionDays)
	}
	if c.Backup.LogRetentionDays < 0 {
		return fmt.Errorf("LOG_RETENTION_DAYS must be >= 0, got %d", c.Backup.LogRetentionDays)
	}
	switch c.Backup.Format {
	case domain.SelectBoth, domain.SelectDump, domain.SelectSQL:
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidFormat, c.Backup.Format)
	}
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		return fmt.Errorf("PG_PORT out of range: %d", c.Postgres.Port)
	}
	return nil
}

func (c *Config) Connection() domain.Connection {
	return domain.Connection{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
	}
}

// Targets returns one target per entry of PG_DATABASE, in order, empties included.
func (c *Config) Targets() []domain.DatabaseTarget {
	return domain.Targets(c.Postgres.Databases, c.Connection())
}

// DefaultDatabase is the first non-empty entry of PG_DATABASE.
func (c *Config) DefaultDatabase() string {
	for _, name := range c.Postgres.Databases {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return "postgres"
}

func (c *Config) DataRoot() string {
	return filepath.Join(c.Backup.Dir, "data")
}

func (c *Config) LogRoot() string {
	return filepath.Join(c.Backup.Dir, "logs")
}

// DaemonLogFile is the rotating service log, LOG_FILE or <BACKUP_DIR>/logs/pgkeeper.log.
func (c *Config) DaemonLogFile() string {
	if c.App.LogFile != "" {
		return c.App.LogFile
	}
	return filepath.Join(c.LogRoot(), "pgkeeper.log")
}

func (c *Config) LockFile() string {
	return filepath.Join(c.Backup.Dir, ".backup.lock")
}

func (c *Config) RunConfig() domain.RunConfig {
	return domain.RunConfig{
		DataRoot:         c.DataRoot(),
		LogRoot:          c.LogRoot(),
		RetentionDays:    c.Backup.RetentionDays,
		LogRetentionDays: c.Backup.LogRetentionDays,
		Compress:         c.Backup.Compress,
		Formats:          c.Backup.Format,
	}
}

type ScheduleKind int

const (
	Daily ScheduleKind = iota
	Hourly
	EveryNMinutes
)

type ScheduleSpec struct {
	Kind    ScheduleKind
	Hour    int
	Minute  int
	Minutes int
}

// ParseSchedule turns BACKUP_INTERVAL and BACKUP_TIME into a ScheduleSpec.
func ParseSchedule(interval, at string) (ScheduleSpec, error) {
	switch interval {
	case "daily":
		t, err := time.Parse("15:04", at)
		if err != nil {
			return ScheduleSpec{}, fmt.Errorf("%w: BACKUP_TIME %q is not HH:MM", domain.ErrInvalidSchedule, at)
		}
		return ScheduleSpec{Kind: Daily, Hour: t.Hour(), Minute: t.Minute()}, nil
	case "hourly":
		return ScheduleSpec{Kind: Hourly}, nil
	}

	if interval == "" || strings.IndexFunc(interval, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return ScheduleSpec{}, fmt.Errorf("%w: BACKUP_INTERVAL %q", domain.ErrInvalidSchedule, interval)
	}
	n, err := strconv.Atoi(interval)
	if err != nil || n <= 0 {
		return ScheduleSpec{}, fmt.Errorf("%w: BACKUP_INTERVAL %q must be a positive number of minutes", domain.ErrInvalidSchedule, interval)
	}
	return ScheduleSpec{Kind: EveryNMinutes, Minutes: n}, nil
}

func (s ScheduleSpec) String() string {
	switch s.Kind {
	case Daily:
		return fmt.Sprintf("daily at %02d:%02d", s.Hour, s.Minute)
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("every %d minute(s)", s.Minutes)
	}
}
