package server

import (
	"watchlist/pkg/handlers"
	"watchlist/pkg/middleware"
	"watchlist/pkg/services"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the watchlist API on app.
func Register(app *fiber.App, authSvc services.AuthService, movieSvc services.MovieService) {
	auth := handlers.NewAuth(authSvc)
	movies := handlers.NewMovies(movieSvc)
	requireAuth := middleware.RequireAuth(authSvc)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Movie Watchlist API"})
	})

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", auth.Signup)
	authGroup.Post("/login", auth.Login)
	authGroup.Get("/me", requireAuth, auth.Me)

	moviesGroup := api.Group("/movies", requireAuth)
	moviesGroup.Get("/", movies.List)
	moviesGroup.Post("/", movies.Add)
	moviesGroup.Put("/:id", movies.UpdateWatched)
	moviesGroup.Delete("/:id", movies.Delete)
}
