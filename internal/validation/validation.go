// Package validation holds the per-field input rules for the account API.
// Each endpoint evaluates its own rule set and collects failures into an
// Errors map, which is returned to the client as the whole response body.
package validation

// Errors maps a field name to the messages explaining why its submitted
// value was rejected. A nil or empty map means the input passed.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Any() bool {
	return len(e) > 0
}
