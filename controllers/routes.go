package controllers

import (
	"github.com/go-chi/chi/v5"
)

// APIRoutes registers the authenticated JSON API. The caller supplies authentication.
func (c *Controllers) APIRoutes(r chi.Router) {
	r.Get("/dashboard", c.Dashboard.Index)

	r.Route("/prompts", func(r chi.Router) {
		r.Get("/", c.Prompts.Index)
		r.Post("/", c.Prompts.Create)
		r.Get("/{id}", c.Prompts.Show)
		r.Put("/{id}", c.Prompts.Update)
		r.Delete("/{id}", c.Prompts.Delete)
		r.Get("/{id}/evaluations", c.Prompts.Evaluations)
		r.Post("/{id}/evaluations", c.Prompts.CreateEvaluation)
	})

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", c.Prompts.CreateCollection)
		r.Put("/{id}/prompts/{promptID}", c.Prompts.AddToCollection)
	})

	r.Get("/settings", c.Settings.Index)
	r.Put("/settings", c.Settings.Update)

	r.Route("/exports", func(r chi.Router) {
		r.Get("/", c.Exports.Index)
		r.Post("/", c.Exports.Create)
		r.Get("/{id}", c.Exports.Show)
		r.Get("/{id}/download-url", c.Exports.DownloadURL)
	})

	r.Route("/deletions", func(r chi.Router) {
		r.Get("/", c.Deletions.Index)
		r.Post("/", c.Deletions.Create)
		r.Post("/{id}/confirm", c.Deletions.Confirm)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/", c.Webhooks.Index)
		r.Post("/", c.Webhooks.Create)
		r.Put("/{id}", c.Webhooks.Update)
		r.Delete("/{id}", c.Webhooks.Delete)
		r.Post("/{id}/test", c.Webhooks.Test)
		r.Get("/{id}/deliveries", c.Webhooks.Deliveries)
	})
	r.Post("/webhook-deliveries/{id}/retry", c.Webhooks.Retry)

	r.Post("/security/password-strength", c.Security.PasswordStrength)
}

// PublicRoutes registers the endpoints that need no session
func (c *Controllers) PublicRoutes(r chi.Router) {
	r.Get("/health", c.Dashboard.Health)
	r.Get("/downloads/{id}", c.Exports.Download)
}
