package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxJSONBody = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteOK writes a successful envelope.
func WriteOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError writes a failed envelope.
func WriteError(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Errors: errs})
}

// WriteEnvelope writes env as is.
func WriteEnvelope(w http.ResponseWriter, status int, env Envelope) {
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", errBadRequest, err)
	}
	if len(body) > maxJSONBody {
		return fmt.Errorf("%w: body too large", errBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func readRaw(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := readJSON(r, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

var errBadRequest = errors.New("bad request")
