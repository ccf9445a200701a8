package streamer

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Peer wraps the answering side of a WebRTC peer connection. The negotiation
// machinery (ICE, DTLS, SRTP) belongs to pion; this type only plumbs SDP and
// candidates between the engine and the signaling channel.
type Peer struct {
	pc    *webrtc.PeerConnection
	onICE func(webrtc.ICECandidateInit)
}

func webrtcConfig(stunServers []string) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(stunServers))
	for _, url := range stunServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	return webrtc.Configuration{ICEServers: servers}
}

// NewPeer creates a peer connection carrying track and starts candidate
// gathering callbacks. onICE fires for every locally gathered candidate.
func NewPeer(stunServers []string, track webrtc.TrackLocal, onICE func(webrtc.ICECandidateInit)) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtcConfig(stunServers))
	if err != nil {
		return nil, err
	}
	p := &Peer{pc: pc, onICE: onICE}

	if _, err := pc.AddTrack(track); err != nil {
		_ = pc.Close()
		return nil, err
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "streamer.peer").Str("ice_state", s.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "streamer.peer").Str("peer_state", s.String()).Msg("peer state")
	})
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && p.onICE != nil {
			p.onICE(cand.ToJSON())
		}
	})

	return p, nil
}

// AnswerOffer applies a viewer's offer and produces the local answer.
// Candidates trickle afterwards through the onICE callback.
func (p *Peer) AnswerOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (p *Peer) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(ci)
}

func (p *Peer) Close() {
	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "streamer.peer").Msg("close error")
	}
}
