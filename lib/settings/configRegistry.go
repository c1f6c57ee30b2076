package settings

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	Title = "title"
	IP    = "ip"
	Port  = "port"

	DBType             = "dbType"
	DBSettingsFilename = "dbSettings.filename"
	DBSettingsHost     = "dbSettings.host"
	DBSettingsPort     = "dbSettings.port"
	DBSettingsDatabase = "dbSettings.database"
	DBSettingsUser     = "dbSettings.user"
	DBSettingsPassword = "dbSettings.password"

	SocketIoMaxHttpBufferSize = "socketIo.maxHttpBufferSize"

	CommitRateLimitingDuration = "commitRateLimiting.duration"
	CommitRateLimitingPoints   = "commitRateLimiting.points"

	CollabSaveIntervalMs = "collab.saveIntervalMs"

	RunnerCommand        = "runner.command"
	RunnerArg            = "runner.arg"
	RunnerTimeoutMs      = "runner.timeoutMs"
	RunnerMaxOutputBytes = "runner.maxOutputBytes"
	RunnerMaxConcurrent  = "runner.maxConcurrent"
)

type ConfigKey struct {
	Key         string
	Default     any
	Description string
}

const envPrefix = "CODEPAIR"

func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(
		strings.ReplaceAll(key, ".", "_"),
	)
}

var Registry = []ConfigKey{
	// ---------------------------------------------------------------------
	// Core
	// ---------------------------------------------------------------------
	{Key: Title, Default: "CodePair", Description: "Application title"},
	{Key: IP, Default: "0.0.0.0", Description: "Bind address"},
	{Key: Port, Default: "9001", Description: "HTTP server port"},

	// ---------------------------------------------------------------------
	// Database
	// ---------------------------------------------------------------------
	{Key: DBType, Default: string(SQLITE), Description: "Database type (sqlite, memory, postgres)"},
	{Key: DBSettingsFilename, Default: "var/codepair.db", Description: "SQLite database file"},
	{Key: DBSettingsHost, Default: "", Description: "Database host"},
	{Key: DBSettingsPort, Default: "5432", Description: "Database port"},
	{Key: DBSettingsDatabase, Default: "codepair", Description: "Database name"},
	{Key: DBSettingsUser, Default: "", Description: "Database user"},
	{Key: DBSettingsPassword, Default: "", Description: "Database password"},

	// ---------------------------------------------------------------------
	// Websocket
	// ---------------------------------------------------------------------
	{Key: SocketIoMaxHttpBufferSize, Default: 50000, Description: "Max inbound websocket message size"},
	{Key: CommitRateLimitingDuration, Default: 1, Description: "Rate limit window in seconds"},
	{Key: CommitRateLimitingPoints, Default: 10, Description: "Events allowed per rate limit window"},

	// ---------------------------------------------------------------------
	// Collaboration
	// ---------------------------------------------------------------------
	{Key: CollabSaveIntervalMs, Default: 2000, Description: "Min interval between persisted snapshots per session"},

	// ---------------------------------------------------------------------
	// Code execution
	// ---------------------------------------------------------------------
	{Key: RunnerCommand, Default: "node", Description: "Interpreter binary for code execution"},
	{Key: RunnerArg, Default: "-e", Description: "Interpreter flag that accepts inline source"},
	{Key: RunnerTimeoutMs, Default: 10000, Description: "Hard timeout per execution"},
	{Key: RunnerMaxOutputBytes, Default: 1 << 20, Description: "Captured output cap per stream"},
	{Key: RunnerMaxConcurrent, Default: 8, Description: "Max concurrently running interpreter processes"},
}

func ApplyRegistryDefaults() {
	for _, c := range Registry {
		viper.SetDefault(c.Key, c.Default)
	}
}
