package config

const (
	FlagConfigPath   = "config-path"
	FlagConfigDbPass = "db-pass"

	DBDialectMysql   = "mysql"
	DBDialectSqlite3 = "sqlite3"

	DefaultMaxPending    = 64
	DefaultRetryAttempts = 3
)
