package config

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the config file format. Every attribute is optional in practice since a file
// is applied over Default. Nested sections are inlined since several of them share the type name
// Config.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return r.Reflect(&Config{})
}
