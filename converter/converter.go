package converter

// Converter serializes inputs and outputs of orchestrations, activities and events
// into the opaque string payloads exchanged with the coordinator.
type Converter interface {
	// To converts the given value to a payload
	To(v any) (string, error)

	// From converts the given payload to a value
	From(data string, v any) error
}

var DefaultConverter Converter = &jsonConverter{}

// RawPayload is a payload that is already serialized. ToPayload passes it through unchanged.
type RawPayload string

// ToPayload converts the given value into an optional payload. A nil value results in no payload.
func ToPayload(c Converter, v any) (*string, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case RawPayload:
		s := string(p)
		return &s, nil
	case *RawPayload:
		return (*string)(p), nil
	}

	p, err := c.To(v)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// FromPayload decodes an optional payload into v. Missing payloads or a nil target are ignored.
func FromPayload(c Converter, data *string, v any) error {
	if data == nil || v == nil {
		return nil
	}

	return c.From(*data, v)
}
