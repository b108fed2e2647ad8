package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"gosupermarket_api/internal/pricing/business"
)

type SupermarketHandler struct {
	Pinger
	service *business.PriceService
}

func NewSupermarketHandler(pinger Pinger, service *business.PriceService) *SupermarketHandler {
	return &SupermarketHandler{
		Pinger:  pinger,
		service: service,
	}
}

// GetSupermarketsHandler serves GET /api/supermarkets.
func (h *SupermarketHandler) GetSupermarketsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		http.Error(w, "Failed to ping database", http.StatusInternalServerError)
		return
	}

	branches, err := h.service.ListSupermarkets(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch supermarkets", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(branches); err != nil {
		log.Printf("Failed to encode supermarkets response: %v", err)
	}
}

// GetBranchHandler serves GET /api/supermarkets/branch?provider=...&code=...
func (h *SupermarketHandler) GetBranchHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		http.Error(w, "Failed to ping database", http.StatusInternalServerError)
		return
	}

	provider := r.URL.Query().Get("provider")
	code := r.URL.Query().Get("code")
	if provider == "" || code == "" {
		http.Error(w, "Missing provider or code parameter", http.StatusBadRequest)
		return
	}

	branch, err := h.service.GetSupermarket(r.Context(), provider, code)
	if err != nil {
		http.Error(w, "Failed to fetch supermarket", http.StatusInternalServerError)
		return
	}
	if branch == nil {
		http.Error(w, "Supermarket not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(branch); err != nil {
		log.Printf("Failed to encode supermarket response: %v", err)
	}
}
