package streamer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var errNullCandidate = errors.New("null candidate")

var roleDeclaration = []byte(`{"type":"role","role":"sender"}`)

// parseOffer extracts the viewer's session description from an offer frame.
func parseOffer(data []byte) (webrtc.SessionDescription, error) {
	var env struct {
		Offer struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"offer"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return webrtc.SessionDescription{}, err
	}
	if env.Offer.SDP == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("offer frame missing sdp")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: env.Offer.SDP}, nil
}

// parseRemoteCandidate extracts an ICE candidate from a candidate frame.
// A null candidate body signals end-of-candidates and maps to errNullCandidate.
func parseRemoteCandidate(data []byte) (webrtc.ICECandidateInit, error) {
	var env struct {
		Candidate *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"candidate"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return webrtc.ICECandidateInit{}, err
	}
	if env.Candidate == nil || env.Candidate.Candidate == "" {
		return webrtc.ICECandidateInit{}, errNullCandidate
	}
	return webrtc.ICECandidateInit{
		Candidate:     env.Candidate.Candidate,
		SDPMid:        env.Candidate.SDPMid,
		SDPMLineIndex: env.Candidate.SDPMLineIndex,
	}, nil
}

func answerEnvelope(desc webrtc.SessionDescription) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": "answer",
		"answer": map[string]string{
			"type": "answer",
			"sdp":  desc.SDP,
		},
	})
}

func candidateEnvelope(ci webrtc.ICECandidateInit) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": "ice-candidate",
		"candidate": map[string]any{
			"candidate":     ci.Candidate,
			"sdpMid":        ci.SDPMid,
			"sdpMLineIndex": ci.SDPMLineIndex,
		},
	})
}
