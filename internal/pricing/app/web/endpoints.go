package web

import (
	handlers2 "gosupermarket_api/internal/pricing/app/web/handlers"
	"gosupermarket_api/metrics"
	"gosupermarket_api/pkg/middleware"
	"log"
	"net/http"
)

func SetupRoutes(port string, handlers ...handlers2.Handler) {
	handlerMap := make(map[string]handlers2.Handler)

	for _, handler := range handlers {
		switch h := handler.(type) {
		case *handlers2.PriceHandler:
			handlerMap["PriceHandler"] = h
		case *handlers2.SupermarketHandler:
			handlerMap["SupermarketHandler"] = h
		default:
			log.Printf("Unknown handler type: %T", h)
		}
	}

	for _, handler := range handlerMap {
		if err := handler.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
	}

	mux := http.NewServeMux()

	if priceHandler, ok := handlerMap["PriceHandler"].(*handlers2.PriceHandler); ok {
		mux.HandleFunc("/api/prices/compare", priceHandler.GetComparisonHandler)
		mux.HandleFunc("/api/products", priceHandler.SearchHandler)
	} else {
		log.Fatalf("PriceHandler not provided")
	}

	if supermarketHandler, ok := handlerMap["SupermarketHandler"].(*handlers2.SupermarketHandler); ok {
		mux.HandleFunc("/api/supermarkets", supermarketHandler.GetSupermarketsHandler)
		mux.HandleFunc("/api/supermarkets/branch", supermarketHandler.GetBranchHandler)
	} else {
		log.Fatalf("SupermarketHandler not provided")
	}

	mux.Handle("/metrics", metrics.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Printf("price api listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, middleware.PrometheusMiddleware(mux)))
}
