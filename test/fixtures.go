package test

import (
	"encoding/json"

	"github.com/TwiN/deepmerge"
)

// MergeJSON overlays override onto base and unmarshals the result into out.
// Request fixtures use it to tweak a single field of a valid body.
func MergeJSON(base, override interface{}, out interface{}) error {
	b, err := json.Marshal(base)
	if err != nil {
		return err
	}
	o, err := json.Marshal(override)
	if err != nil {
		return err
	}
	merged, err := deepmerge.JSON(b, o, deepmerge.Config{
		PreventMultipleDefinitionsOfKeysWithPrimitiveValue: false},
	)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, out)
}
