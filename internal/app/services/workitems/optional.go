package workitems

import (
	"bytes"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OptionalID tells "absent" apart from "null" in a PATCH body. Set is true
// whenever the key was present; ID is nil when it was null.
type OptionalID struct {
	Set bool
	ID  *primitive.ObjectID
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.ID = nil
		return nil
	}
	var hex string
	if err := json.Unmarshal(b, &hex); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return err
	}
	o.ID = &id
	return nil
}
