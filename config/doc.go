// Package config loads layered configuration with Viper: a YAML file, an
// optional .env file (godotenv) and environment variables, unmarshalled
// into an application struct that embeds ServiceConfig.
//
//	var cfg service.Config
//	err := config.LoadConfig("diarizerd", &cfg, config.WithEnvPrefix("DIARIZER"))
package config
