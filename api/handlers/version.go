package handlers

import (
	"net/http"

	"github.com/cafemesh/cafemesh/buildinfo"
)

// VersionHandler serves the build metadata. The provider's fallback chain
// guarantees a best-effort object; this endpoint never fails.
type VersionHandler struct {
	provider *buildinfo.Provider
}

// NewVersionHandler creates the handler.
func NewVersionHandler(provider *buildinfo.Provider) *VersionHandler {
	return &VersionHandler{provider: provider}
}

// HandleVersion handles GET /version.
func (h *VersionHandler) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.provider.Get())
}
