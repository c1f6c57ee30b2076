package settings

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

func ReadConfig() (*Settings, error) {
	viper.SetConfigName("settings")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
		// No settings file is fine, defaults apply.
	}

	ApplyRegistryDefaults()

	dbTypeToUse, err := ParseDBType(viper.GetString(DBType))
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Title: viper.GetString(Title),
		IP:    viper.GetString(IP),
		Port:  viper.GetString(Port),

		DBType: dbTypeToUse,
		DBSettings: DBSettings{
			Filename: viper.GetString(DBSettingsFilename),
			Host:     viper.GetString(DBSettingsHost),
			Port:     viper.GetString(DBSettingsPort),
			Database: viper.GetString(DBSettingsDatabase),
			User:     viper.GetString(DBSettingsUser),
			Password: viper.GetString(DBSettingsPassword),
		},

		SocketIo: SocketIoSettings{
			MaxHttpBufferSize: viper.GetInt64(SocketIoMaxHttpBufferSize),
		},

		CommitRateLimiting: CommitRateLimiting{
			Duration: viper.GetInt(CommitRateLimitingDuration),
			Points:   viper.GetInt(CommitRateLimitingPoints),
		},

		Collab: CollabSettings{
			SaveIntervalMs: viper.GetInt(CollabSaveIntervalMs),
		},

		Runner: RunnerSettings{
			Command:        viper.GetString(RunnerCommand),
			Arg:            viper.GetString(RunnerArg),
			TimeoutMs:      viper.GetInt(RunnerTimeoutMs),
			MaxOutputBytes: viper.GetInt64(RunnerMaxOutputBytes),
			MaxConcurrent:  viper.GetInt64(RunnerMaxConcurrent),
		},
	}

	return s, nil
}
