package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"halya/internal/core"
	"halya/internal/csvfile"
	"halya/internal/log"
	"halya/internal/lookup"
)

type fetchPayload[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
	Reason string `json:"reason,omitempty"`
}

func newFetchPayload[T any](st core.FetchState[T]) fetchPayload[T] {
	return fetchPayload[T]{Status: st.Status.String(), Data: st.Data, Reason: st.Reason}
}

type pickerPayload struct {
	Mounted       bool                          `json:"mounted"`
	Alleys        fetchPayload[[]string]        `json:"alleys"`
	SelectedAlley string                        `json:"selected_alley"`
	Residents     fetchPayload[[]core.Resident] `json:"residents"`
}

type viewerPayload struct {
	Resident *core.Resident             `json:"resident"`
	History  fetchPayload[core.History] `json:"history"`
	Groups   []core.CategoryGroup       `json:"groups,omitempty"`
}

type viewPayload struct {
	SessionID string        `json:"session_id"`
	Mode      string        `json:"mode"`
	Picker    pickerPayload `json:"picker"`
	Viewer    viewerPayload `json:"viewer"`
	Notice    string        `json:"notice,omitempty"`
}

func newViewPayload(v lookup.View) viewPayload {
	p := viewPayload{
		SessionID: v.SessionID,
		Mode:      v.Mode.String(),
		Picker: pickerPayload{
			Mounted:       v.Picker.Mounted,
			Alleys:        newFetchPayload(v.Picker.Alleys),
			SelectedAlley: v.Picker.SelectedAlley,
			Residents:     newFetchPayload(v.Picker.Residents),
		},
		Viewer: viewerPayload{
			History: newFetchPayload(v.Viewer.History),
			Groups:  v.Viewer.Groups,
		},
	}
	if v.Viewer.HasResident {
		r := v.Viewer.Resident
		p.Viewer.Resident = &r
	}
	return p
}

type paymentsPayload struct {
	Resident core.Resident        `json:"resident"`
	Payments []core.Payment       `json:"payments"`
	Summary  core.Summary         `json:"summary"`
	Groups   []core.CategoryGroup `json:"groups"`
}

func (s *Server) handleAPIAlleys(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.fetchContext(r.Context())
	defer cancel()

	values, err := s.store.AlleyValues(ctx)
	if err != nil {
		s.upstreamFailed(w, r, log.OpLoadAlleys, err)
		return
	}
	NewResponse().JSON(map[string]any{"alleys": core.DistinctAlleys(values)}).Write(w)
}

func (s *Server) handleAPIResidents(w http.ResponseWriter, r *http.Request) {
	alley := sanitizeInput(chi.URLParam(r, "alley"))
	if alley == "" {
		JSONError(http.StatusBadRequest, "invalid_parameter", "alley is required").Write(w)
		return
	}

	ctx, cancel := s.fetchContext(r.Context())
	defer cancel()

	residents, err := s.store.ResidentsByAlley(ctx, alley)
	if err != nil {
		s.upstreamFailed(w, r, log.OpLoadResidents, err)
		return
	}
	if residents == nil {
		residents = []core.Resident{}
	}
	NewResponse().JSON(map[string]any{"alley": alley, "residents": residents}).Write(w)
}

func (s *Server) handleAPIPayments(w http.ResponseWriter, r *http.Request) {
	resident, history, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	groups := core.GroupByCategory(history.Payments, s.classifier)
	if groups == nil {
		groups = []core.CategoryGroup{}
	}
	NewResponse().JSON(paymentsPayload{
		Resident: resident,
		Payments: history.Payments,
		Summary:  history.Summary,
		Groups:   groups,
	}).Write(w)
}

func (s *Server) handleAPIPaymentsCSV(w http.ResponseWriter, r *http.Request) {
	resident, history, ok := s.loadHistory(w, r)
	if !ok {
		return
	}

	rows := make([]core.PaymentRecord, 0, len(history.Payments))
	for _, p := range history.Payments {
		rows = append(rows, core.NewPaymentRecord(p))
	}
	var buf bytes.Buffer
	if err := csvfile.Write(&buf, rows); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport, log.FieldResidentID, resident.ResidentID, log.FieldError, err.Error())
		JSONError(http.StatusInternalServerError, "export_failed", "Could not build CSV").Write(w)
		return
	}

	NewResponse().
		Header("Content-Disposition", `attachment; filename="payments-`+csvFileName(resident.ResidentID)+`.csv"`).
		Body("text/csv; charset=utf-8", buf.Bytes()).
		Write(w)
}

func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request) (core.Resident, core.History, bool) {
	id := sanitizeInput(chi.URLParam(r, "id"))
	if id == "" {
		JSONError(http.StatusBadRequest, "invalid_parameter", "resident id is required").Write(w)
		return core.Resident{}, core.History{}, false
	}

	ctx, cancel := s.fetchContext(r.Context())
	defer cancel()

	resident, err := s.store.Resident(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrResidentNotFound) {
			JSONError(http.StatusNotFound, "not_found", "Resident not found").Write(w)
			return core.Resident{}, core.History{}, false
		}
		s.upstreamFailed(w, r, log.OpLoadPayments, err)
		return core.Resident{}, core.History{}, false
	}

	payments, err := s.store.PaymentsByResident(ctx, id)
	if err != nil {
		s.upstreamFailed(w, r, log.OpLoadPayments, err)
		return core.Resident{}, core.History{}, false
	}
	return resident, core.NewHistory(payments), true
}

func (s *Server) upstreamFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Store query failed",
		log.FieldOperation, op, log.FieldError, err.Error())
	JSONError(http.StatusBadGateway, "upstream_failed", err.Error()).Write(w)
}

// csvFileName keeps only characters safe in a Content-Disposition filename.
func csvFileName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
