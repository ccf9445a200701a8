package domain

import (
	"bytes"
	"testing"
)

func TestParseRoleDeclarations(t *testing.T) {
	m := Parse([]byte(`{"type":"role","role":"sender"}`))
	if m.Kind != KindRole || m.Role != RoleSender {
		t.Fatalf("unexpected message: %#v", m)
	}

	m = Parse([]byte(`{"type":"role","role":"viewer"}`))
	if m.Kind != KindRole || m.Role != RoleViewer {
		t.Fatalf("unexpected message: %#v", m)
	}
}

func TestParseKeepsRawBytes(t *testing.T) {
	raw := []byte(`{"type":"offer","sdp":"X","extra":{"nested":1}}`)
	m := Parse(raw)
	if m.Kind != KindOffer {
		t.Fatalf("kind = %q, want offer", m.Kind)
	}
	if !bytes.Equal(m.Raw, raw) {
		t.Fatalf("raw bytes altered: %s", m.Raw)
	}
}

func TestParseNegotiationKinds(t *testing.T) {
	for _, tc := range []struct {
		payload string
		want    Kind
	}{
		{`{"type":"offer","sdp":"a"}`, KindOffer},
		{`{"type":"answer","sdp":"b"}`, KindAnswer},
		{`{"type":"ice-candidate","candidate":{}}`, KindCandidate},
	} {
		if m := Parse([]byte(tc.payload)); m.Kind != tc.want {
			t.Fatalf("Parse(%s).Kind = %q, want %q", tc.payload, m.Kind, tc.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		``,
		`{"type":"unknown"}`,
		`{"type":"role"}`,
		`{"type":"role","role":"moderator"}`,
		`{"role":"sender"}`,
		`{"type":"sender-connected"}`,
	} {
		if m := Parse([]byte(payload)); m.Kind != KindInvalid {
			t.Fatalf("Parse(%q).Kind = %q, want invalid", payload, m.Kind)
		}
	}
}
