package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/services"
	appErr "github.com/taakra/engine/pkg/errors"
)

type CompetitionsHandler struct {
	svc   services.CompetitionService
	debug bool
}

func NewCompetitionsHandler(svc services.CompetitionService, debug bool) *CompetitionsHandler {
	return &CompetitionsHandler{svc: svc, debug: debug}
}

// List handles GET /competitions?search&category&startDate&endDate&sort&page&limit.
func (h *CompetitionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.CompetitionQuery{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}
	if c := q.Get("category"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			writeError(w, r, appErr.New(appErr.CodeInvalid, "Invalid category"), h.debug)
			return
		}
		query.CategoryID = &id
	}
	var err error
	if query.StartFrom, err = optionalDate(strPtr(q.Get("startDate")), "startDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if query.StartTo, err = optionalDate(strPtr(q.Get("endDate")), "endDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}

	page, err := h.svc.List(r.Context(), query)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	items := page.Competitions
	if items == nil {
		items = []models.Competition{}
	}
	writeJSON(w, http.StatusOK, types.CompetitionListResponse{
		Success:           true,
		Competitions:      items,
		TotalPages:        page.TotalPages,
		CurrentPage:       page.CurrentPage,
		TotalCompetitions: page.Total,
	})
}

func strPtr(s string) *string { return &s }

func (h *CompetitionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.CompetitionResponse{Success: true, Competition: c})
}

func (h *CompetitionsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	p, err := h.svc.Register(r.Context(), id, mustUser(r).ID)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.ParticipantResponse{
		Success:     true,
		Message:     "Successfully registered for competition",
		Participant: p,
	})
}

func (h *CompetitionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CompetitionCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	in := services.CompetitionInput{
		Title:           req.Title,
		Description:     req.Description,
		CategoryID:      uuid.MustParse(req.Category),
		Rules:           req.Rules,
		Prizes:          req.Prizes,
		MaxParticipants: req.MaxParticipants,
	}
	var err error
	if in.StartDate, err = parseDate(req.StartDate, "startDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if in.EndDate, err = parseDate(req.EndDate, "endDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if in.RegistrationDeadline, err = parseDate(req.RegistrationDeadline, "registrationDeadline"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}

	c, err := h.svc.Create(r.Context(), in, mustUser(r).ID)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusCreated, types.CompetitionResponse{
		Success:     true,
		Message:     "Competition created successfully",
		Competition: c,
	})
}

func (h *CompetitionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	var req types.CompetitionUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}

	patch := services.CompetitionPatch{
		Title:           req.Title,
		Description:     req.Description,
		Rules:           req.Rules,
		Prizes:          req.Prizes,
		MaxParticipants: req.MaxParticipants,
		IsActive:        req.IsActive,
	}
	if req.Category != nil {
		cat := uuid.MustParse(*req.Category)
		patch.CategoryID = &cat
	}
	if patch.StartDate, err = optionalDate(req.StartDate, "startDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if patch.EndDate, err = optionalDate(req.EndDate, "endDate"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if patch.RegistrationDeadline, err = optionalDate(req.RegistrationDeadline, "registrationDeadline"); err != nil {
		writeError(w, r, err, h.debug)
		return
	}

	c, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.CompetitionResponse{
		Success:     true,
		Message:     "Competition updated successfully",
		Competition: c,
	})
}

func (h *CompetitionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeMessage(w, http.StatusOK, "Competition deleted successfully")
}

func (h *CompetitionsHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	regs, err := h.svc.Registrations(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	if regs == nil {
		regs = []models.Participant{}
	}
	writeJSON(w, http.StatusOK, types.RegistrationsResponse{
		Success:       true,
		Competition:   id.String(),
		TotalCount:    len(regs),
		Registrations: regs,
	})
}

func (h *CompetitionsHandler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	var req types.RegistrationStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.debug)
		return
	}

	p, err := h.svc.UpdateRegistrationStatus(r.Context(), id, userID, models.RegistrationStatus(req.Status))
	if err != nil {
		writeError(w, r, err, h.debug)
		return
	}
	writeJSON(w, http.StatusOK, types.ParticipantResponse{
		Success:     true,
		Message:     "Registration status updated",
		Participant: p,
	})
}
