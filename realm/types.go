package realm

// Property type tags accepted in an ObjectSchema's properties mapping. These
// mirror the type vocabulary of the remote engine.
const (
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeDouble = "double"
	TypeString = "string"
	TypeDate   = "date"
	TypeData   = "data"
	TypeObject = "object"
	TypeList   = "list"
)

// Types enumerates every property type tag, keyed by its canonical name.
// The map is informational; the engine only ever sees the tag strings.
var Types = map[string]string{
	"Bool":   TypeBool,
	"Int":    TypeInt,
	"Float":  TypeFloat,
	"Double": TypeDouble,
	"String": TypeString,
	"Date":   TypeDate,
	"Data":   TypeData,
	"Object": TypeObject,
	"List":   TypeList,
}
