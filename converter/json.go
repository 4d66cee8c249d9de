package converter

import (
	"encoding/json"
)

type jsonConverter struct{}

func (jc *jsonConverter) To(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (jc *jsonConverter) From(data string, vptr any) error {
	return json.Unmarshal([]byte(data), vptr)
}
