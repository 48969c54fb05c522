package http

import (
	"bytes"
	"errors"
	"net/http"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/lookup"
)

const pickerClosedNotice = "Go back to the resident list before choosing another alley or resident."

type pageData struct {
	View   lookup.View
	Notice string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Start(r.Context())
	s.render(w, r, http.StatusOK, pageData{View: sess.View()})
}

func (s *Server) handleChooseAlley(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseAction(w, r)
	if !ok {
		return
	}
	sess := s.session(w, r)
	if err := sess.ChooseAlley(r.Context(), p.Get("alley")); err != nil {
		s.respondAction(w, r, p, sess, http.StatusConflict, pickerClosedNotice)
		return
	}
	s.respondAction(w, r, p, sess, http.StatusOK, "")
}

func (s *Server) handleChooseResident(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseAction(w, r)
	if !ok {
		return
	}
	sess := s.session(w, r)
	residentID := p.Get("resident_id")
	if err := sess.ChooseResident(r.Context(), residentID); err != nil {
		if errors.Is(err, lookup.ErrPickerNotMounted) {
			s.respondAction(w, r, p, sess, http.StatusConflict, pickerClosedNotice)
			return
		}
		if errors.Is(err, core.ErrResidentNotFound) {
			s.respondAction(w, r, p, sess, http.StatusNotFound, "That resident is not in the current list.")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Resident selection failed",
			log.FieldResidentID, residentID, log.FieldError, err.Error())
		s.respondAction(w, r, p, sess, http.StatusInternalServerError, "Selection failed.")
		return
	}
	s.respondAction(w, r, p, sess, http.StatusOK, "")
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseAction(w, r)
	if !ok {
		return
	}
	sess := s.session(w, r)
	sess.Back(r.Context())
	s.respondAction(w, r, p, sess, http.StatusOK, "")
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseAction(w, r)
	if !ok {
		return
	}
	sess := s.session(w, r)
	if err := sess.Retry(r.Context()); err != nil {
		s.respondAction(w, r, p, sess, http.StatusConflict, "Nothing to retry.")
		return
	}
	s.respondAction(w, r, p, sess, http.StatusOK, "")
}

func (s *Server) parseAction(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if wantsJSON(r, nil) {
			JSONError(http.StatusBadRequest, "bad_request", "Invalid request body").Write(w)
		} else {
			BadRequestError("Invalid request body").Write(w)
		}
		return nil, false
	}
	return p, true
}

// respondAction answers a UI action: JSON clients get the new view,
// browsers are redirected back to the page unless there is a notice to
// show, in which case the page is rendered directly.
func (s *Server) respondAction(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, sess *lookup.Session, status int, notice string) {
	if wantsJSON(r, p) {
		payload := newViewPayload(sess.View())
		payload.Notice = notice
		NewResponse().Status(status).JSON(payload).Write(w)
		return
	}
	if notice == "" {
		RedirectHome().Write(w)
		return
	}
	s.render(w, r, status, pageData{View: sess.View(), Notice: notice})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, log.FieldError, err.Error())
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	NewResponse().Status(status).Body("text/html; charset=utf-8", buf.Bytes()).Write(w)
}
