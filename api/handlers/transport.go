package handlers

import (
	"net/http"

	"github.com/cafemesh/cafemesh/transport"
)

// TransportHandler exposes which transport the service is wired to.
type TransportHandler struct {
	t transport.Transport
}

// NewTransportHandler creates the handler.
func NewTransportHandler(t transport.Transport) *TransportHandler {
	return &TransportHandler{t: t}
}

// HandleTransportConfig handles GET /transport/config.
func (h *TransportHandler) HandleTransportConfig(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"transport": h.t.Name()})
}
