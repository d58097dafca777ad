package config

import "github.com/caarlos0/env/v11"

type MigrateConfig struct {
	PostgresDSN    string `env:"POSTGRES_DSN,required,notEmpty"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

func LoadMigrate() (MigrateConfig, error) {
	var cfg MigrateConfig
	err := env.Parse(&cfg)
	return cfg, err
}
