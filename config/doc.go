// Package config loads application configuration with viper and godotenv.
//
// Sources are applied in order: a YAML file (explicit or found by name in
// the working directory or the user config directory), a .env file, and
// finally environment variables carrying the application prefix:
//
//	var cfg client.Config
//	err := config.LoadConfig("tapioca", &cfg, config.WithConfigFile("github.yml"))
//
// TAPIOCA_CREDENTIALS_ACCESS_TOKEN then overrides credentials.access_token.
package config
