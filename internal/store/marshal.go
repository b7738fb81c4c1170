package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/ir"
)

// marshalParams converts signal parameters to canonical JSON TEXT.
func marshalParams(params []ir.Value) (string, error) {
	if params == nil {
		params = []ir.Value{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses parameters written by marshalParams. Integral
// numbers come back as ints, even when they were written from floats, and
// GUIDs come back as strings. Hash is the identity to compare on.
func unmarshalParams(data string) ([]ir.Value, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	params := make([]ir.Value, len(raw))
	for i, elem := range raw {
		v, err := ir.FromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("unmarshal params: param %d: %w", i, err)
		}
		params[i] = v
	}
	return params, nil
}

func parseGUID(column, s string) (ir.GUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ir.NilGUID, fmt.Errorf("column %s: %w", column, err)
	}
	return id, nil
}
