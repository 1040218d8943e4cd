package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig allows credentials only for an explicit origin list; fiber rejects "*" with credentials.
func CORSConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST,GET,DELETE,PUT,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = strings.Join(origins, ",")
		cfg.AllowCredentials = true
	}
	return cfg
}
