package handlers

import (
	"net/http"
	"time"

	"github.com/Doud-FR/Wiki/internal/http/httputil"
)

// Version is stamped at build time with -ldflags "-X ...handlers.Version=".
var Version = "1.0.0"

func Health(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}
