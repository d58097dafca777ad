package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file when one exists.
// Variables already set in the process environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
