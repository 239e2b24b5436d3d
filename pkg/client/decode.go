package client

import (
	"encoding/json"
	"fmt"
)

// Validator is implemented by response shapes that carry invariants beyond
// what JSON unmarshalling enforces.
type Validator interface {
	Validate() error
}

// Decode classifies resp and, for 2xx responses, parses its body as T.
// Non-2xx responses become a KindRemote error holding the body verbatim.
func Decode[T any](resp *Response) (T, error) {
	var out T

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorsTotal.WithLabelValues(string(KindRemote)).Inc()
		return out, &Error{
			Kind:       KindRemote,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}

	if err := json.Unmarshal(resp.Body, &out); err != nil {
		errorsTotal.WithLabelValues(string(KindDecode)).Inc()
		return out, decodeFailure(err)
	}

	var target any = out
	if _, ok := target.(Validator); !ok {
		target = &out
	}
	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			errorsTotal.WithLabelValues(string(KindDecode)).Inc()
			return out, decodeFailure(fmt.Errorf("%T: %w", out, err))
		}
	}

	return out, nil
}
