package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order when present. Existing process environment
// variables are never overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() error {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return err
		}
	}
	return nil
}
