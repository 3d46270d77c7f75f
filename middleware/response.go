package middleware

import (
	"encoding/json"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   goGate.ErrorKind `json:"error"`
	Message string           `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind goGate.ErrorKind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: kind, Message: message})
}
