package handler

import (
	"net/http"

	"github.com/authkeeper/internal/transport/http/respond"
)

func Health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}
