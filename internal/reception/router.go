package reception

import "github.com/julienschmidt/httprouter"

const APIPrefix = "/api/v1"

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(APIPrefix+"/branches", h.ListBranches)
	router.GET(APIPrefix+"/branches/:branchId/doctors", h.ListDoctors)
	router.GET(APIPrefix+"/branches/:branchId/doctors/:doctorId/timeslots", h.ListTimeslots)

	router.GET(APIPrefix+"/reservations", h.ListReservations)
	router.POST(APIPrefix+"/reservations", h.CreateReservation)
	router.POST(APIPrefix+"/reservations/:id/transitions", h.RequestTransition)
	router.GET(APIPrefix+"/reservations/:id/transition-state", h.TransitionState)
	router.GET(APIPrefix+"/reservations/:id/history", h.History)

	router.GET(APIPrefix+"/transitions", h.TransitionTable)
	router.GET(APIPrefix+"/availability", h.Availability)

	router.GET(APIPrefix+"/views/pending", h.PendingQueue)
	router.GET(APIPrefix+"/views/status-counts", h.StatusCounts)
	router.GET(APIPrefix+"/views/calendar", h.Calendar)
	router.GET(APIPrefix+"/views/doctors/:doctorId/week", h.DoctorWeek)

	router.POST(APIPrefix+"/diagnosis/recommendations", h.Recommend)
}
