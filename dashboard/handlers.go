package dashboard

import (
	"log"
	"net/http"

	"soko/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		log.Printf("dashboard: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to compute dashboard stats")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Dashboard stats retrieved successfully",
		"stats":   stats,
	})
}
