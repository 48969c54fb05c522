package lookup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store"
)

// ErrPickerNotMounted is returned for picker actions while a resident is
// shown. The viewer's Back returns control to the picker.
var ErrPickerNotMounted = errors.New("picker is not mounted")

// View is everything a page needs to render one session.
type View struct {
	SessionID string
	Mode      Mode
	Picker    PickerView
	Viewer    ViewerView
}

// Session ties a controller to its picker and viewer. Exactly one of the
// two is mounted at any time, chosen by the controller's selection.
type Session struct {
	ID         string
	Controller *Controller
	Picker     *Picker
	Viewer     *Viewer

	mu       sync.Mutex
	logger   *log.Logger
	lastSeen time.Time
	now      func() time.Time
}

// NewSession creates a session with a fresh random ID.
func NewSession(st store.Store, opts ...Option) *Session {
	return NewSessionWithID(uuid.NewString(), st, opts...)
}

// NewSessionWithID creates a session with a caller-chosen ID.
func NewSessionWithID(id string, st store.Store, opts ...Option) *Session {
	opts = append(opts, withSessionID(id))
	o := buildOptions(opts)
	c := NewController()
	return &Session{
		ID:         id,
		Controller: c,
		Picker:     NewPicker(st, c, opts...),
		Viewer:     NewViewer(st, c, opts...),
		logger:     o.logger.With(log.FieldSessionID, id),
		lastSeen:   o.now(),
		now:        o.now,
	}
}

// Start mounts whichever component the current selection calls for.
func (s *Session) Start(ctx context.Context) {
	s.touch()
	s.reconcile(ctx)
}

// ChooseAlley selects an alley in the picker.
func (s *Session) ChooseAlley(ctx context.Context, alley string) error {
	s.touch()
	if s.Controller.Mode() == ModeViewer {
		return ErrPickerNotMounted
	}
	s.reconcile(ctx)
	s.Picker.SelectAlley(ctx, alley)
	return nil
}

// ChooseResident selects a resident from the current list and switches
// to the viewer.
func (s *Session) ChooseResident(ctx context.Context, residentID string) error {
	s.touch()
	if s.Controller.Mode() == ModeViewer {
		return ErrPickerNotMounted
	}
	if err := s.Picker.Pick(residentID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Resident selected",
		log.FieldOperation, log.OpSelect,
		log.FieldResidentID, residentID,
	)
	s.reconcile(ctx)
	return nil
}

// Back clears the selection and remounts the picker, which reloads the
// alley list.
func (s *Session) Back(ctx context.Context) {
	s.touch()
	s.Viewer.Back()
	s.logger.InfoContext(ctx, "Selection cleared", log.FieldOperation, log.OpClear)
	s.reconcile(ctx)
}

// Retry repeats the failed fetch of the active component.
func (s *Session) Retry(ctx context.Context) error {
	s.touch()
	if s.Controller.Mode() == ModeViewer {
		return s.Viewer.Retry(ctx)
	}
	s.Picker.Retry(ctx)
	return nil
}

// View returns a render snapshot.
func (s *Session) View() View {
	return View{
		SessionID: s.ID,
		Mode:      s.Controller.Mode(),
		Picker:    s.Picker.Snapshot(),
		Viewer:    s.Viewer.Snapshot(),
	}
}

// LastSeen is the time of the last user action.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) reconcile(ctx context.Context) {
	resident, ok := s.Controller.Selection()
	if ok {
		s.Picker.Unmount()
		s.Viewer.Sync(ctx, resident, true)
		return
	}
	s.Viewer.Sync(ctx, core.Resident{}, false)
	s.Picker.Mount(ctx)
}
