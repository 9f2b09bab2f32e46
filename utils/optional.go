package utils

import "encoding/json"

// Optional distinguishes an absent JSON field from an explicit null.
// Absent: Set=false. Explicit null: Set=true, Value=nil. Present:
// Set=true, Value non-nil. Update handlers need the distinction so
// `{"assignee_id": null}` clears a field while `{}` leaves it alone.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
