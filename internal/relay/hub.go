// Package relay implements the signaling relay between one media sender and
// any number of viewers: per-connection role state, message classification,
// and best-effort fan-out of negotiation payloads.
package relay

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/core"
	"github.com/dkrylov/camstream/internal/domain"
)

type eventKind int

const (
	evJoin eventKind = iota
	evFrame
	evLeave
)

type event struct {
	kind eventKind
	conn core.SignalConnection
	data core.Frame
	id   string
}

type peer struct {
	id   string
	role domain.Role
}

// Hub is the single event-processing component of the relay. All connection
// events flow through one channel consumed by one Run loop, so the registry
// and the per-connection role state are only ever touched by one goroutine and
// broadcasts are atomic with respect to concurrently arriving messages.
type Hub struct {
	events chan event
	reg    *Registry
	peers  map[core.SignalConnection]*peer
}

func NewHub() *Hub {
	return &Hub{
		events: make(chan event, 64),
		reg:    NewRegistry(),
		peers:  make(map[core.SignalConnection]*peer),
	}
}

// Join registers a freshly accepted connection with role unknown.
// id is only used for log correlation.
func (h *Hub) Join(id string, c core.SignalConnection) {
	h.events <- event{kind: evJoin, conn: c, id: id}
}

// Dispatch hands an inbound frame to the event loop.
func (h *Hub) Dispatch(c core.SignalConnection, data core.Frame) {
	h.events <- event{kind: evFrame, conn: c, data: data}
}

// Leave reports that a connection closed or hit a fatal transport error.
func (h *Hub) Leave(c core.SignalConnection) {
	h.events <- event{kind: evLeave, conn: c}
}

// Run consumes events until ctx is canceled. It must be running for Join,
// Dispatch, and Leave to make progress.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "relay").Msg("hub stopped")
			return
		case ev := <-h.events:
			switch ev.kind {
			case evJoin:
				h.handleJoin(ev.id, ev.conn)
			case evFrame:
				h.handleFrame(ev.conn, ev.data)
			case evLeave:
				h.handleLeave(ev.conn)
			}
		}
	}
}

func (h *Hub) handleJoin(id string, c core.SignalConnection) {
	h.peers[c] = &peer{id: id}
	log.Info().Str("module", "relay").Str("conn", id).Msg("connection joined")
}

func (h *Hub) handleFrame(c core.SignalConnection, data core.Frame) {
	p, ok := h.peers[c]
	if !ok {
		return
	}

	msg := domain.Parse(data)
	switch msg.Kind {
	case domain.KindInvalid:
		// Protocol error: dropped silently, connection stays open.
		log.Debug().Str("module", "relay").Str("conn", p.id).Msg("unparseable frame dropped")
	case domain.KindRole:
		h.handleRole(p, c, msg.Role)
	case domain.KindOffer, domain.KindCandidate:
		if p.role == domain.RoleViewer {
			h.sendToSender(msg.Raw)
			return
		}
		if p.role == domain.RoleSender && msg.Kind == domain.KindCandidate {
			h.broadcastViewers(msg.Raw)
			return
		}
		log.Debug().Str("module", "relay").Str("conn", p.id).Str("kind", string(msg.Kind)).
			Str("role", string(p.role)).Msg("frame dropped for role")
	case domain.KindAnswer:
		if p.role == domain.RoleSender {
			h.broadcastViewers(msg.Raw)
			return
		}
		log.Debug().Str("module", "relay").Str("conn", p.id).Str("role", string(p.role)).
			Msg("answer dropped for role")
	}
}

// handleRole binds the connection's role. The transition is one-way: a second
// declaration on an already bound connection is a no-op, never a
// re-registration.
func (h *Hub) handleRole(p *peer, c core.SignalConnection, role domain.Role) {
	if p.role != domain.RoleUnknown {
		log.Warn().Str("module", "relay").Str("conn", p.id).Str("role", string(p.role)).
			Msg("repeated role declaration ignored")
		return
	}
	p.role = role

	switch role {
	case domain.RoleSender:
		h.reg.SetSender(c)
		log.Info().Str("module", "relay").Str("conn", p.id).Msg("sender registered")
		for _, v := range h.reg.AllViewers() {
			h.send(v, domain.SenderConnected)
		}
	case domain.RoleViewer:
		h.reg.AddViewer(c)
		log.Info().Str("module", "relay").Str("conn", p.id).
			Int("viewers", h.reg.ViewerCount()).Msg("viewer registered")
		// Immediate state sync: a joining viewer learns sender presence
		// without waiting for a future event.
		if s := h.reg.CurrentSender(); s != nil && s.IsOpen() {
			h.send(c, domain.SenderConnected)
		} else {
			h.send(c, domain.SenderDisconnected)
		}
	}
}

func (h *Hub) handleLeave(c core.SignalConnection) {
	p, ok := h.peers[c]
	if !ok {
		return
	}
	delete(h.peers, c)

	switch p.role {
	case domain.RoleSender:
		if h.reg.CurrentSender() == c {
			h.reg.RemoveSender(c)
			log.Info().Str("module", "relay").Str("conn", p.id).Msg("sender disconnected")
			for _, v := range h.reg.AllViewers() {
				h.send(v, domain.SenderDisconnected)
			}
		}
	case domain.RoleViewer:
		// Viewer departures are silent.
		h.reg.RemoveViewer(c)
		log.Info().Str("module", "relay").Str("conn", p.id).
			Int("viewers", h.reg.ViewerCount()).Msg("viewer disconnected")
	default:
		log.Info().Str("module", "relay").Str("conn", p.id).Msg("undeclared connection discarded")
	}
}

func (h *Hub) sendToSender(data core.Frame) {
	s := h.reg.CurrentSender()
	if s == nil || !s.IsOpen() {
		return
	}
	h.send(s, data)
}

func (h *Hub) broadcastViewers(data core.Frame) {
	for _, v := range h.reg.AllViewers() {
		h.send(v, data)
	}
}

// send is best-effort: not open means skip, a full send buffer means drop.
// No retry, no error back to the originating peer.
func (h *Hub) send(c core.SignalConnection, data core.Frame) {
	if !c.IsOpen() {
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "relay").Msg("frame delivery skipped")
	}
}
