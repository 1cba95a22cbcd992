package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Socket is one connected client as seen by the relay.
type Socket interface {
	ID() string
	Join(room string)
	Leave(room string)
	Emit(event string, payload any)
	SetData(v any)
	Data() any
}

// Broadcaster delivers events to rooms or to every connected socket.
type Broadcaster interface {
	ToRoom(room, event string, payload any)
	ToRoomExcept(room, exceptSocketID, event string, payload any)
	ToAll(event string, payload any)
}

// FileStore persists uploaded attachment bytes and returns a public URL.
type FileStore interface {
	Save(ctx context.Context, dir, filename string, data []byte) (string, error)
}

// AckFunc answers an event that carried an acknowledgement id. It is nil when
// the client did not ask for one.
type AckFunc func(payload any)

type Options struct {
	Repository  Repository
	Broadcaster Broadcaster
	Files       FileStore
	JWTSecret   string
	Logger      *slog.Logger
	Now         func() time.Time
}

type Relay struct {
	repo        Repository
	broadcaster Broadcaster
	files       FileStore
	gatekeeper  *Gatekeeper
	log         *slog.Logger
	now         func() time.Time
	sanitizer   *bluemonday.Policy
	validate    *validator.Validate
}

func New(opts Options) *Relay {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Relay{
		repo:        opts.Repository,
		broadcaster: opts.Broadcaster,
		files:       opts.Files,
		gatekeeper:  NewGatekeeper(opts.JWTSecret),
		log:         log,
		now:         now,
		sanitizer:   bluemonday.StrictPolicy(),
		validate:    newValidator(),
	}
}

func (r *Relay) toRoom(room, event string, payload any) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.ToRoom(room, event, payload)
}

func (r *Relay) toRoomExcept(room, exceptSocketID, event string, payload any) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.ToRoomExcept(room, exceptSocketID, event, payload)
}

func (r *Relay) toAll(event string, payload any) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.ToAll(event, payload)
}
