package config

import "os"

const (
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	envVar        = "ENV"
	defaultFolder = ".worldpet"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "World Pet Client")
}

// GetDataFolder returns the folder used for durable client state (tokens).
func (EnvVars) GetDataFolder() string {
	folder := GetEnv(folderEnvVar, "")
	if folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultFolder
	}
	return home + string(os.PathSeparator) + defaultFolder
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
