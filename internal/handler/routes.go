package handler

import "github.com/go-chi/chi/v5"

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/chat/state", h.ChatState)
		r.Post("/chat/messages", h.SendMessage)
		r.Post("/chat/reset", h.ResetChat)
		r.Get("/chat/events", h.ChatEvents)

		r.Get("/products", h.ListProducts)
		r.Get("/products/selected", h.SelectedProduct)
		r.Put("/products/selected", h.SelectProduct)
	})
}
