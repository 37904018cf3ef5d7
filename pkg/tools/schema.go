package tools

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateSchema derives a tool input schema from an argument struct.
//
// Fields without omitempty are required, descriptions come from the
// jsonschema_description tag and unknown properties are rejected. The
// result is inlined (no $defs) so it can be served as an MCP inputSchema.
func GenerateSchema[T any]() map[string]interface{} {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Only named types are kept as definitions to expand; unnamed
		// structs are reflected inline.
		ExpandedStruct: t.Name() != "",
	}
	schema := reflector.ReflectFromType(t)

	data, err := json.Marshal(schema)
	if err != nil {
		panic("tools: cannot encode schema: " + err.Error())
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		panic("tools: cannot decode schema: " + err.Error())
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}
	return out
}
