package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	EnvPrefix          = "DRUPAL_ARCHIVE"
	DefaultConfigFile  = "drupal-archive.yaml"
	DefaultCleanupCron = "0 0 3 * * *"
)

type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Commands  CommandsConfig   `mapstructure:"commands"`
	Timeouts  TimeoutsConfig   `mapstructure:"timeouts"`
	Backup    BackupConfig     `mapstructure:"backup"`
	Schedules []ScheduleConfig `mapstructure:"schedules"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	TempDir  string `mapstructure:"temp_dir"`
}

// CommandsConfig names the external binaries, looked up in PATH unless absolute.
type CommandsConfig struct {
	Shell     string `mapstructure:"shell"`
	Drush     string `mapstructure:"drush"`
	MySQL     string `mapstructure:"mysql"`
	MySQLDump string `mapstructure:"mysqldump"`
	Tar       string `mapstructure:"tar"`
	Gzip      string `mapstructure:"gzip"`
}

type TimeoutsConfig struct {
	Command  time.Duration `mapstructure:"command"`
	Transfer time.Duration `mapstructure:"transfer"`
	Probe    time.Duration `mapstructure:"probe"`
}

type BackupConfig struct {
	LocalPath       string         `mapstructure:"local_path"`
	RetentionDays   int            `mapstructure:"retention_days"`
	CleanupSchedule string         `mapstructure:"cleanup_schedule"`
	UploadTargets   []UploadTarget `mapstructure:"upload_targets"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local copy
	Path string `mapstructure:"path"`

	// Google Drive, either a service account or an OAuth client with a
	// refresh token obtained through gdrive-auth.
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	RefreshToken     string `mapstructure:"refresh_token"`
	FolderID         string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

type ScheduleConfig struct {
	Name     string `mapstructure:"name"`
	Source   string `mapstructure:"source"`
	Cron     string `mapstructure:"cron"`
	UseDrush bool   `mapstructure:"use_drush"`
	Enabled  bool   `mapstructure:"enabled"`
}

// Load reads the configuration. An empty path looks for the default file in
// the working directory and /etc/drupal-archive, and falls back to defaults
// when none is found. An explicit path must be readable.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, ".yaml"))
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/drupal-archive")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "drupal-archive")
	v.SetDefault("app.log_level", "warn")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.temp_dir", "")

	v.SetDefault("commands.shell", "/bin/sh")
	v.SetDefault("commands.drush", "drush")
	v.SetDefault("commands.mysql", "mysql")
	v.SetDefault("commands.mysqldump", "mysqldump")
	v.SetDefault("commands.tar", "tar")
	v.SetDefault("commands.gzip", "gzip")

	v.SetDefault("timeouts.command", 300*time.Second)
	v.SetDefault("timeouts.transfer", 600*time.Second)
	v.SetDefault("timeouts.probe", 30*time.Second)

	v.SetDefault("backup.local_path", "/var/backups/drupal")
	v.SetDefault("backup.retention_days", 7)
	v.SetDefault("backup.cleanup_schedule", DefaultCleanupCron)
}

// Validate checks what every command needs.
func (c *Config) Validate() error {
	if c.Timeouts.Command <= 0 {
		return fmt.Errorf("timeouts.command must be positive")
	}
	if c.Timeouts.Transfer <= 0 {
		return fmt.Errorf("timeouts.transfer must be positive")
	}
	if c.Timeouts.Probe <= 0 {
		return fmt.Errorf("timeouts.probe must be positive")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days cannot be negative")
	}

	for i, target := range c.Backup.UploadTargets {
		if !target.Enabled {
			continue
		}
		if err := target.validate(); err != nil {
			return fmt.Errorf("backup.upload_targets[%d]: %w", i, err)
		}
	}

	return nil
}

func (t UploadTarget) validate() error {
	switch t.Type {
	case "local":
		if t.Path == "" {
			return fmt.Errorf("path is required for local targets")
		}
	case "s3":
		if t.Bucket == "" || t.Region == "" {
			return fmt.Errorf("bucket and region are required for s3 targets")
		}
	case "gdrive":
		if t.FolderID == "" {
			return fmt.Errorf("folder_id is required for gdrive targets")
		}
		if t.CredentialsFile == "" && (t.ClientSecretFile == "" || t.RefreshToken == "") {
			return fmt.Errorf("credentials_file, or client_secret_file with refresh_token, is required for gdrive targets")
		}
	case "telegram":
		if t.BotToken == "" || t.ChatID == "" {
			return fmt.Errorf("bot_token and chat_id are required for telegram targets")
		}
	default:
		return fmt.Errorf("unknown target type %q", t.Type)
	}
	return nil
}

// ValidateSchedules checks what the schedule command needs on top of Validate.
func (c *Config) ValidateSchedules() error {
	if c.Backup.LocalPath == "" {
		return fmt.Errorf("backup.local_path is required")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Backup.CleanupSchedule); err != nil {
		return fmt.Errorf("backup.cleanup_schedule: %w", err)
	}

	enabled := c.GetEnabledSchedules()
	if len(enabled) == 0 {
		return fmt.Errorf("at least one enabled schedule is required")
	}

	names := map[string]bool{}
	for i, s := range c.Schedules {
		if !s.Enabled {
			continue
		}
		if s.Name == "" {
			return fmt.Errorf("schedules[%d]: name is required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("schedules[%d]: duplicate name %q", i, s.Name)
		}
		names[s.Name] = true
		if s.Source == "" {
			return fmt.Errorf("schedules[%d]: source is required", i)
		}
		if _, err := parser.Parse(s.Cron); err != nil {
			return fmt.Errorf("schedules[%d]: invalid cron %q: %w", i, s.Cron, err)
		}
	}

	return nil
}

func (c *Config) GetEnabledSchedules() []ScheduleConfig {
	var enabled []ScheduleConfig
	for _, s := range c.Schedules {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
