package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	DBConfig     DBConfig     `json:"db_config"`
	LogConfig    LogConfig    `json:"log_config"`
	QueueConfig  QueueConfig  `json:"queue_config"`
	ServerConfig ServerConfig `json:"server_config"`
	AlertConfig  AlertConfig  `json:"alert_config"`
}

type DBConfig struct {
	Dialect      string `json:"dialect"`
	DBPath       string `json:"db_path"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	MaxIdleConns int    `json:"max_idle_conns"`
	MaxOpenConns int    `json:"max_open_conns"`
}

func (cfg *DBConfig) Validate() {
	if cfg.Dialect != DBDialectMysql && cfg.Dialect != DBDialectSqlite3 {
		panic(fmt.Sprintf("only %s and %s supported", DBDialectMysql, DBDialectSqlite3))
	}
	if cfg.DBPath == "" {
		panic("db config is not correct")
	}
	if cfg.Dialect == DBDialectMysql && cfg.Username == "" {
		panic("db username required for mysql")
	}
}

type LogConfig struct {
	Level                        string `json:"level"`
	Filename                     string `json:"filename"`
	MaxFileSizeInMB              int    `json:"max_file_size_in_mb"`
	MaxBackupsOfLogFiles         int    `json:"max_backups_of_log_files"`
	MaxAgeToRetainLogFilesInDays int    `json:"max_age_to_retain_log_files_in_days"`
	UseConsoleLogger             bool   `json:"use_console_logger"`
	UseFileLogger                bool   `json:"use_file_logger"`
	Compress                     bool   `json:"compress"`
}

func (cfg *LogConfig) Validate() {
	if cfg.UseFileLogger {
		if cfg.Filename == "" {
			panic("filename should not be empty if use file logger")
		}
		if cfg.MaxFileSizeInMB <= 0 {
			panic("max_file_size_in_mb should be larger than 0 if use file logger")
		}
		if cfg.MaxBackupsOfLogFiles <= 0 {
			panic("max_backups_of_log_files should be larger than 0 if use file logger")
		}
	}
}

// QueueConfig bounds the per-poll submission lanes. MaxPending caps how
// many submissions may wait in one poll's lane before further callers
// are rejected; SubmitTimeoutSec bounds how long a caller waits for its
// task to complete.
type QueueConfig struct {
	MaxPending         int `json:"max_pending"`
	SubmitTimeoutSec   int `json:"submit_timeout_sec"`
	RetryAttempts      int `json:"retry_attempts"`
	AuditBufferSize    int `json:"audit_buffer_size"`
	SchedulerPeriodSec int `json:"scheduler_period_sec"`
}

func (cfg *QueueConfig) Validate() {
	if cfg.MaxPending < 0 || cfg.SubmitTimeoutSec < 0 || cfg.RetryAttempts < 0 {
		panic("queue config is not correct")
	}
}

func (cfg *QueueConfig) MaxPendingOrDefault() int {
	if cfg.MaxPending == 0 {
		return DefaultMaxPending
	}
	return cfg.MaxPending
}

func (cfg *QueueConfig) RetryAttemptsOrDefault() uint {
	if cfg.RetryAttempts == 0 {
		return DefaultRetryAttempts
	}
	return uint(cfg.RetryAttempts)
}

type ServerConfig struct {
	ListenAddr  string `json:"listen_addr"`
	MetricsPort uint16 `json:"metrics_port"`
}

type AlertConfig struct {
	Identity       string `json:"identity"`
	TelegramBotId  string `json:"telegram_bot_id"`
	TelegramChatId string `json:"telegram_chat_id"`
}

func (cfg *Config) Validate() {
	cfg.DBConfig.Validate()
	cfg.LogConfig.Validate()
	cfg.QueueConfig.Validate()
}

func ParseConfigFromJson(content string) *Config {
	var config Config
	if err := json.Unmarshal([]byte(content), &config); err != nil {
		panic(err)
	}
	return &config
}

func ParseConfigFromFile(filePath string) *Config {
	bz, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}

	var config Config
	if err := json.Unmarshal(bz, &config); err != nil {
		panic(err)
	}

	config.Validate()

	return &config
}
