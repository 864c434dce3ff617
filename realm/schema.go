package realm

import "github.com/remoterealm/remoterealm/rpc"

// ObjectSchema describes one record type: its name and the mapping from
// property name to property type tag (see the Type constants).
type ObjectSchema struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// RecordType is implemented by user-supplied record constructors. A
// RecordType is accepted anywhere a type name is expected; it is resolved to
// the remote type identifier registered for the realm, and its name to
// constructor mapping is retained so records of that type can be handed back
// to the constructor on reconstruction.
type RecordType interface {
	Schema() ObjectSchema
}

// validateSchema shape-checks a schema descriptor before it is forwarded to
// the remote engine.
func validateSchema(schema ObjectSchema) error {
	if schema.Name == "" {
		return rpc.NewUsageError("object schema is missing a name")
	}
	if schema.Properties == nil {
		return rpc.NewUsageError("object schema %q is missing a properties mapping", schema.Name)
	}
	return nil
}

// normalizeSchema walks the configured schema entries, replacing every
// RecordType by its extracted descriptor and retaining the name to
// constructor mapping. Entries may be ObjectSchema values or RecordType
// implementations; anything else is a usage error.
func normalizeSchema(entries []interface{}) ([]ObjectSchema, map[string]RecordType, error) {
	schemas := make([]ObjectSchema, 0, len(entries))
	constructors := make(map[string]RecordType)

	for i, entry := range entries {
		switch e := entry.(type) {
		case ObjectSchema:
			if err := validateSchema(e); err != nil {
				return nil, nil, err
			}
			schemas = append(schemas, e)
		case RecordType:
			schema := e.Schema()
			if err := validateSchema(schema); err != nil {
				return nil, nil, err
			}
			schemas = append(schemas, schema)
			constructors[schema.Name] = e
		default:
			return nil, nil, rpc.NewUsageError("schema entry %d must be an ObjectSchema or a RecordType, got %T", i, entry)
		}
	}

	return schemas, constructors, nil
}
