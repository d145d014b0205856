package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

type planReply struct {
	Action   string   `json:"action" jsonschema:"the id of the action to run"`
	Contexts []string `json:"contexts,omitempty" jsonschema:"extra editor context the action needs"`
}

func TestSchemaForAndDecode(t *testing.T) {
	s, err := SchemaFor[planReply]("plan")
	if err != nil {
		t.Fatal(err)
	}
	var out planReply
	if err := s.Decode([]byte(`{"action":"write","contexts":["currentLine"]}`), &out); err != nil {
		t.Fatal(err)
	}
	if out.Action != "write" || len(out.Contexts) != 1 {
		t.Errorf("out = %+v", out)
	}
	if err := s.Validate([]byte(`{"contexts":[]}`)); err == nil {
		t.Error("missing required action accepted")
	}
	if err := s.Validate([]byte(`not json`)); err == nil {
		t.Error("non-JSON accepted")
	}
	if !strings.Contains(string(s.JSON()), "the id of the action to run") {
		t.Errorf("description missing from %s", s.JSON())
	}
}

func TestWithEnum(t *testing.T) {
	base := MustSchemaFor[planReply]("plan")
	s, err := base.WithEnum("action", []string{"write", "none"})
	if err != nil {
		t.Fatal(err)
	}
	s, err = s.WithEnum("contexts", []string{"currentFile", "currentLine"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		doc string
		ok  bool
	}{
		{`{"action":"write"}`, true},
		{`{"action":"none","contexts":["currentFile"]}`, true},
		{`{"action":"delete-everything"}`, false},
		{`{"action":"write","contexts":["clipboard"]}`, false},
	}
	for _, tt := range tests {
		err := s.Validate([]byte(tt.doc))
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%s) = %v, want ok=%v", tt.doc, err, tt.ok)
		}
	}

	// the base schema is untouched
	if err := base.Validate([]byte(`{"action":"anything"}`)); err != nil {
		t.Errorf("base schema changed: %v", err)
	}

	var doc map[string]any
	json.Unmarshal(s.JSON(), &doc)
	if doc["type"] != "object" {
		t.Errorf("schema JSON = %s", s.JSON())
	}

	if _, err := base.WithEnum("nope", nil); err == nil {
		t.Error("WithEnum on unknown field should fail")
	}
}
