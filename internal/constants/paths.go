package constants

// Log file names.
const (
	// CLILogFileName is the name of the rotating CLI log file.
	// This file is located in ~/.taskflow/logs/taskflow.log
	CLILogFileName = "taskflow.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global configuration file.
	GlobalConfigName = "config.yaml"

	// EnvPrefix is the environment variable prefix read by viper.
	EnvPrefix = "TASKFLOW"

	// HomeEnvVar overrides the taskflow home directory.
	HomeEnvVar = "TASKFLOW_HOME"
)
