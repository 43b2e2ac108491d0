package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
)

// Stand-in backend for manual gateway testing. Echoes the identity headers
// the gateway forwards so the auth pipeline can be inspected end to end.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9001"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"path":       r.URL.Path,
			"auth_phone": r.Header.Get("X-Auth-Phone"),
			"auth_role":  r.Header.Get("X-Auth-Role"),
			"client_ip":  r.Header.Get("X-Forwarded-For"),
		})
	})

	log.Printf("Dummy backend listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
