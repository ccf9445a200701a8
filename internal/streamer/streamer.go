// Package streamer is the media producer: it connects outward to the
// signaling relay, declares itself the sender, and answers viewer offers with
// a looping video file carried by a pion peer connection.
package streamer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/config"
)

var ErrMaxRetries = errors.New("maximum retries reached")

type Streamer struct {
	cfg config.Streamer

	mu   sync.Mutex
	ws   *websocket.Conn
	peer *Peer
}

func New(cfg config.Streamer) *Streamer {
	return &Streamer{cfg: cfg}
}

// Run connects and streams, reconnecting up to MaxRetries times on failure.
// It returns nil when ctx is canceled.
func (s *Streamer) Run(ctx context.Context) error {
	for attempt := 0; attempt < s.cfg.MaxRetries; {
		err := s.connectAndStream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		attempt++
		log.Error().Err(err).Str("module", "streamer").Int("attempt", attempt).
			Int("max", s.cfg.MaxRetries).Msg("streaming failed")
		if attempt >= s.cfg.MaxRetries {
			break
		}
		log.Info().Str("module", "streamer").Dur("delay", s.cfg.RetryDelay).Msg("retrying")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.RetryDelay):
		}
	}
	return ErrMaxRetries
}

func (s *Streamer) connectAndStream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.cleanup()

	if s.cfg.UseWebcam {
		// Device capture needs an external media pipeline; only the file
		// source has an in-process producer.
		log.Warn().Str("module", "streamer").Int("index", s.cfg.WebcamIndex).
			Msg("webcam capture not available in-process, using video file")
	}
	source, err := newFileTrack(s.cfg.VideoFile)
	if err != nil {
		return err
	}
	go source.Feed(ctx)

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.ConnectTimeout}
	log.Info().Str("module", "streamer").Str("url", s.cfg.SignalingURL).Msg("connecting to signaling relay")
	ws, _, err := dialer.DialContext(ctx, s.cfg.SignalingURL, nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ws = ws
	s.mu.Unlock()

	// Unblock the read loop when ctx is canceled.
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	if err := s.sendRaw(roleDeclaration); err != nil {
		return err
	}
	log.Info().Str("module", "streamer").Msg("declared sender role")

	return s.handleSignaling(source)
}

func (s *Streamer) handleSignaling(source *fileTrack) error {
	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("module", "streamer").Msg("bad signaling frame")
			continue
		}

		switch env.Type {
		case "offer":
			s.handleOffer(source, data)
		case "ice-candidate":
			s.handleCandidate(data)
		case "sender-connected":
			log.Info().Str("module", "streamer").Msg("presence broadcast to viewers")
		case "sender-disconnected":
			log.Warn().Str("module", "streamer").Msg("unexpected sender-disconnected for sender")
		default:
			log.Warn().Str("module", "streamer").Str("type", env.Type).Msg("unknown signaling frame")
		}
	}
}

// handleOffer answers a viewer's offer on a fresh peer connection, replacing
// any previous one. One negotiation is live at a time; the relay broadcasts
// the answer, viewers match on their own offer.
func (s *Streamer) handleOffer(source *fileTrack, data []byte) {
	offer, err := parseOffer(data)
	if err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("bad offer payload")
		return
	}

	peer, err := NewPeer(s.cfg.StunServers, source.Track(), func(ci webrtc.ICECandidateInit) {
		env, err := candidateEnvelope(ci)
		if err != nil {
			return
		}
		if err := s.sendRaw(env); err != nil {
			log.Error().Err(err).Str("module", "streamer").Msg("send candidate")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("new peer connection")
		return
	}

	answer, err := peer.AnswerOffer(offer)
	if err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("answer offer")
		peer.Close()
		return
	}

	s.mu.Lock()
	if s.peer != nil {
		s.peer.Close()
	}
	s.peer = peer
	s.mu.Unlock()

	env, err := answerEnvelope(answer)
	if err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("marshal answer")
		return
	}
	if err := s.sendRaw(env); err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("send answer")
		return
	}
	log.Info().Str("module", "streamer").Msg("sent answer to viewer")
}

func (s *Streamer) handleCandidate(data []byte) {
	ci, err := parseRemoteCandidate(data)
	if errors.Is(err, errNullCandidate) {
		log.Debug().Str("module", "streamer").Msg("candidate gathering complete")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("bad candidate payload")
		return
	}

	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer == nil {
		log.Warn().Str("module", "streamer").Msg("candidate before any offer, dropped")
		return
	}
	if err := peer.AddICECandidate(ci); err != nil {
		log.Error().Err(err).Str("module", "streamer").Msg("add ice candidate")
	}
}

// sendRaw serializes writes; gorilla allows one concurrent writer and
// candidates arrive from pion's callback goroutines.
func (s *Streamer) sendRaw(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return errors.New("not connected")
	}
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

func (s *Streamer) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer != nil {
		s.peer.Close()
		s.peer = nil
	}
	if s.ws != nil {
		_ = s.ws.Close()
		s.ws = nil
	}
	log.Info().Str("module", "streamer").Msg("cleanup completed")
}
