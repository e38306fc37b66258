package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects a response type into a JSON schema suitable for the
// structured-output response format. Additional properties are disallowed so
// the strict decoder and the schema agree on what a well-formed reply is.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
