package settings

import (
	"go.uber.org/zap"
)

type DBSettings struct {
	Filename string
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

type SocketIoSettings struct {
	MaxHttpBufferSize int64
}

type CommitRateLimiting struct {
	Duration int `json:"duration"`
	Points   int `json:"points"`
}

type CollabSettings struct {
	SaveIntervalMs int `json:"saveIntervalMs"`
}

type RunnerSettings struct {
	Command        string `json:"command"`
	Arg            string `json:"arg"`
	TimeoutMs      int    `json:"timeoutMs"`
	MaxOutputBytes int64  `json:"maxOutputBytes"`
	MaxConcurrent  int64  `json:"maxConcurrent"`
}

type Settings struct {
	Title              string             `json:"title"`
	IP                 string             `json:"ip"`
	Port               string             `json:"port"`
	DBType             IDBType            `json:"dbType"`
	DBSettings         DBSettings         `json:"dbSettings"`
	SocketIo           SocketIoSettings   `json:"socketIo"`
	CommitRateLimiting CommitRateLimiting `json:"commitRateLimiting"`
	Collab             CollabSettings     `json:"collab"`
	Runner             RunnerSettings     `json:"runner"`
}

// Displayed holds the settings the running process was started with.
var Displayed Settings

func InitSettings(logger *zap.SugaredLogger) {
	cfg, err := ReadConfig()
	if err != nil {
		logger.Fatal("Error reading settings: " + err.Error())
		return
	}
	Displayed = *cfg
}
