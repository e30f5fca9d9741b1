package models

import (
	"encoding/json"
	"testing"
)

func TestRatio_MarshalsUndefinedAsNull(t *testing.T) {
	data, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}{A: Defined(0.5), B: Undefined()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":0.5,"b":null}` {
		t.Fatalf("json=%s want a=0.5 b=null", data)
	}
}

func TestRatio_UnmarshalRoundTrip(t *testing.T) {
	var out struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":0.25,"b":null}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.A.Valid || out.A.Value != 0.25 {
		t.Fatalf("a=%+v want valid 0.25", out.A)
	}
	if out.B.Valid {
		t.Fatalf("b=%+v want undefined", out.B)
	}
}
