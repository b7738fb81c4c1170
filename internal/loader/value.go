package loader

import (
	"bytes"
	"encoding/json"

	"cuelang.org/go/cue"
	"github.com/google/uuid"

	"github.com/roach88/graphscript/internal/ir"
)

// Namespace seeds the GUIDs derived from element paths.
var Namespace = uuid.MustParse("3f0c8e2a-6d1b-4c57-a9e4-7b2d5f1c8a90")

// GUIDFor returns the GUID derived for an element path such as
// "class/Door/variables/open".
func GUIDFor(path string) ir.GUID {
	return uuid.NewSHA1(Namespace, []byte(path))
}

func field(v cue.Value, name string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(name)))
}

// elementGUID returns the explicit guid of v or the one derived from path.
func elementGUID(v cue.Value, path string) (ir.GUID, error) {
	g := field(v, "guid")
	if !g.Exists() {
		return GUIDFor(path), nil
	}
	return parseGUID(g)
}

func parseGUID(v cue.Value) (ir.GUID, error) {
	s, err := v.String()
	if err != nil {
		return ir.NilGUID, formatCUEError(err)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ir.NilGUID, newLoadError(ErrCodeInvalidGUID, v.Pos(), "invalid guid %q: %v", s, err)
	}
	return id, nil
}

func optString(v cue.Value, name string) (string, bool, error) {
	f := field(v, name)
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, name string) (bool, error) {
	f := field(v, name)
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeJSON decodes v through its JSON form with numbers kept as
// json.Number, so ints and floats keep their kind.
func decodeJSON(v cue.Value, dst any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return formatCUEError(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}

// toValue converts a concrete CUE scalar into a Value.
func toValue(v cue.Value) (ir.Value, error) {
	var raw any
	if err := decodeJSON(v, &raw); err != nil {
		return nil, err
	}
	val, err := ir.FromAny(raw)
	if err != nil {
		return nil, newLoadError(ErrCodeInvalidValue, v.Pos(), "%v", err)
	}
	return val, nil
}

// toProperties converts a struct of scalars. A missing struct yields nil.
func toProperties(v cue.Value) (ir.Properties, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	props := ir.Properties{}
	for iter.Next() {
		val, err := toValue(iter.Value())
		if err != nil {
			return nil, err
		}
		props[iter.Label()] = val
	}
	return props, nil
}

func toVector(v cue.Value, def [3]float64) ([3]float64, error) {
	if !v.Exists() {
		return def, nil
	}
	var xs []float64
	if err := decodeJSON(v, &xs); err != nil {
		return def, newLoadError(ErrCodeInvalidValue, v.Pos(), "vector: %v", err)
	}
	if len(xs) != 3 {
		return def, newLoadError(ErrCodeInvalidValue, v.Pos(), "vector needs 3 components, got %d", len(xs))
	}
	return [3]float64{xs[0], xs[1], xs[2]}, nil
}
