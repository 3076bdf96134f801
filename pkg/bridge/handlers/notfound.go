package handlers

import (
	"net/http"

	"github.com/cupidcall/cupid-bridge/pkg/bridge/apierror"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &apierror.Error{
		Type:    apierror.ErrNotFound,
		Message: "unknown route: " + r.Method + " " + r.URL.Path,
	})
}
