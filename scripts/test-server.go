//go:build ignore

// Small in-memory users API for trying restcall locally:
//
//	go run scripts/test-server.go -addr :8080
//	restcall run -c scripts/catalog.yaml -e local -r createUser -r getUser -r deleteUser
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type store struct {
	mu     sync.Mutex
	nextID int
	users  map[int]user
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	s := &store{nextID: 1, users: make(map[int]user)}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var u user
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil || u.Name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		u.ID = s.nextID
		s.nextID++
		s.users[u.ID] = u
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, u)
	})

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		s.mu.Lock()
		u, ok := s.users[id]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})

	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		s.mu.Lock()
		delete(s.users, id)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().Format(time.RFC3339)})
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mux.ServeHTTP(w, r)
		logger.Info("served", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("took", time.Since(start)))
	})

	logger.Info("starting test server", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
