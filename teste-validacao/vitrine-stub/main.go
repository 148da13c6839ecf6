// Upstream falso da loja para validar o gateway na mão:
//
//	go run ./teste-validacao/vitrine-stub
//	UPSTREAM_URL=http://localhost:8081 go run ./cmd/gateway
//	for i in $(seq 130); do curl -s -o /dev/null -w "%{http_code}\n" localhost:8080/api/products; done
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	r := chi.NewRouter()
	r.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":"p-1","name":"Camiseta"}]}`))
		logger.Info("catalog hit", zap.String("remote", r.RemoteAddr), zap.String("ua", r.UserAgent()))
	})

	logger.Info("vitrine stub listening", zap.String("addr", "http://localhost:8081"))
	if err := http.ListenAndServe(":8081", r); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
