package health

import (
	"net/http"

	"github.com/dunya-jewellery/shop/internal/transport/http/response"
)

// Status is the static service descriptor returned by the liveness probe.
type Status struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// NewHandler returns a liveness handler for the given service descriptor.
func NewHandler(service, version string) http.HandlerFunc {
	body := Status{Status: "healthy", Service: service, Version: version}

	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, body)
	}
}
