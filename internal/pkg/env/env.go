package env

import (
	"github.com/joho/godotenv"
)

// SetupEnvFile loads the first .env file it finds. Variables that are
// already set keep their value. Running without a .env file is fine
// (containers pass plain env vars).
func SetupEnvFile() string {
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/paddlesync to project root
		"../../../.env", // Fallback for deeper nesting
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			return envFile
		}
	}
	return ""
}
