package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"gosupermarket_api/internal/pricing/business"
	"gosupermarket_api/internal/pricing/models"
)

type PriceHandler struct {
	Pinger
	service *business.PriceService
}

func NewPriceHandler(pinger Pinger, service *business.PriceService) *PriceHandler {
	return &PriceHandler{
		Pinger:  pinger,
		service: service,
	}
}

// GetComparisonHandler serves GET /api/prices/compare?barcode=...
// The response is sorted ascending by effective price with per-row savings
// against the cheapest branch.
func (h *PriceHandler) GetComparisonHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		http.Error(w, "Failed to ping database", http.StatusInternalServerError)
		return
	}

	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		http.Error(w, "Missing barcode parameter", http.StatusBadRequest)
		return
	}

	startTime := time.Now()
	rows, err := h.service.CompareByBarcode(r.Context(), barcode)
	if err != nil {
		http.Error(w, "Failed to fetch price comparison", http.StatusInternalServerError)
		return
	}
	log.Printf("price comparison execution time: %v", time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(rows); err != nil {
		log.Printf("Failed to encode comparison response: %v", err)
	}
}

// SearchHandler serves GET /api/products with q, min_price, max_price,
// promo, provider and limit query parameters.
func (h *PriceHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		http.Error(w, "Failed to ping database", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := models.SearchFilter{
		Query:     query.Get("q"),
		Provider:  query.Get("provider"),
		PromoOnly: query.Get("promo") == "true" || query.Get("promo") == "1",
	}
	if v := query.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid min_price parameter", http.StatusBadRequest)
			return
		}
		filter.MinPrice = &price
	}
	if v := query.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid max_price parameter", http.StatusBadRequest)
			return
		}
		filter.MaxPrice = &price
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	startTime := time.Now()
	rows, err := h.service.Search(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to search products", http.StatusInternalServerError)
		return
	}
	log.Printf("product search execution time: %v", time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(rows); err != nil {
		log.Printf("Failed to encode search response: %v", err)
	}
}
