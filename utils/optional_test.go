package utils

import (
	"encoding/json"
	"testing"
)

func TestOptionalDistinguishesAbsentNullAndValue(t *testing.T) {
	type body struct {
		AssigneeID Optional[uint] `json:"assignee_id"`
	}

	var absent body
	if err := json.Unmarshal([]byte(`{}`), &absent); err != nil {
		t.Fatal(err)
	}
	if absent.AssigneeID.Set {
		t.Error("absent field should have Set=false")
	}

	var null body
	if err := json.Unmarshal([]byte(`{"assignee_id": null}`), &null); err != nil {
		t.Fatal(err)
	}
	if !null.AssigneeID.Set || null.AssigneeID.Value != nil {
		t.Errorf("explicit null should have Set=true, Value=nil; got Set=%t Value=%v",
			null.AssigneeID.Set, null.AssigneeID.Value)
	}

	var present body
	if err := json.Unmarshal([]byte(`{"assignee_id": 42}`), &present); err != nil {
		t.Fatal(err)
	}
	if !present.AssigneeID.Set || present.AssigneeID.Value == nil || *present.AssigneeID.Value != 42 {
		t.Errorf("present field should carry the value; got Set=%t Value=%v",
			present.AssigneeID.Set, present.AssigneeID.Value)
	}
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var o Optional[uint]
	if err := json.Unmarshal([]byte(`"not a number"`), &o); err == nil {
		t.Error("expected a type error")
	}
}

func TestOptionalMarshal(t *testing.T) {
	v := 7
	set := Optional[int]{Set: true, Value: &v}
	out, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "7" {
		t.Errorf("marshal = %s, want 7", out)
	}

	out, err = json.Marshal(Optional[int]{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "null" {
		t.Errorf("marshal of unset = %s, want null", out)
	}
}
