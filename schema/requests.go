package schema

import "encoding/json"

// CopyRequest copies the caller's current layout to another identified
// user. DeviceTypes lists the device classes to copy; All copies every
// class and is encoded as the literal "all" on the wire.
type CopyRequest struct {
	TargetEmail string       `json:"targetEmail"`
	DeviceTypes []DeviceType `json:"deviceTypes,omitempty"`
	All         bool         `json:"-"`
	Tabs        []Tab        `json:"tabs"`
}

// MarshalJSON encodes DeviceTypes as "all" when All is set.
func (r CopyRequest) MarshalJSON() ([]byte, error) {
	type alias CopyRequest
	if !r.All {
		return json.Marshal(alias(r))
	}
	return json.Marshal(struct {
		alias
		DeviceTypes string `json:"deviceTypes"`
	}{alias: alias(r), DeviceTypes: "all"})
}
