package types

import (
	"encoding/json"
	"testing"
)

func TestStringListUnmarshal(t *testing.T) {
	var req EmbedRequest
	if err := json.Unmarshal([]byte(`{"model":"m","input":"one text"}`), &req); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(req.Input) != 1 || req.Input[0] != "one text" {
		t.Fatalf("unexpected input: %+v", req.Input)
	}

	if err := json.Unmarshal([]byte(`{"model":"m","input":["a","b"]}`), &req); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(req.Input) != 2 || req.Input[1] != "b" {
		t.Fatalf("unexpected input: %+v", req.Input)
	}

	if err := json.Unmarshal([]byte(`{"input":42}`), &req); err == nil {
		t.Fatal("expected error for non-string input")
	}
}
