package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridquest.gg/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	overlaySchema := compile("overlay.schema.json")
	statusSchema := compile("cmd_status.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"hello",
	  "protocol_version":"1.0",
	  "name":"bot1"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"welcome",
	  "protocol_version":"1.0",
	  "player_id":"P1",
	  "session_id":"c0ffee",
	  "rules":{"combat_digest":"deadbeef","recipes_digest":"deadbeef"},
	  "tuning":{"proximity_r":220.0,"offer_ttl_ms":5000,"defense_window_ms":1000}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var overlay any
	_ = json.Unmarshal([]byte(`{
	  "type":"overlay",
	  "seq":7,
	  "overlay":{"cmd":{
	    "kind":"trade",
	    "to":"P2",
	    "give":{"wood":2},
	    "want":{"rock":1}
	  }}
	}`), &overlay)
	validate(overlaySchema, overlay)

	var accepted any
	_ = json.Unmarshal([]byte(`{
	  "type":"cmd_status",
	  "status":"accepted",
	  "kind":"trade",
	  "from":"P1",
	  "txid":"t-1",
	  "to":"P2",
	  "give":{"wood":2},
	  "want":{"rock":1}
	}`), &accepted)
	validate(statusSchema, accepted)

	var matched any
	_ = json.Unmarshal([]byte(`{
	  "type":"cmd_status",
	  "status":"matched",
	  "kind":"attack",
	  "from":"P1",
	  "target":"P2",
	  "with":"knife",
	  "effects":{
	    "health":{"P2":-4},
	    "combat":{"weapon":"knife","attack":"slash","defense":"tough","mult":1.1,"raw":4.4,"damage":4}
	  }
	}`), &matched)
	validate(statusSchema, matched)

	var rejected any
	_ = json.Unmarshal([]byte(`{
	  "type":"cmd_status",
	  "status":"rejected",
	  "kind":"accept",
	  "from":"P2",
	  "txid":"t-1",
	  "reason":"expired"
	}`), &rejected)
	validate(statusSchema, rejected)
}

func TestDecodeBase(t *testing.T) {
	raw := []byte(`{"type":"overlay","seq":3,"overlay":{"cmd":{"kind":"rep","target":"P2","delta":1}}}`)
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if base.Type != protocol.TypeOverlay {
		t.Fatalf("type = %q, want overlay", base.Type)
	}
}
