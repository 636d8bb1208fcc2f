package tools

// Param describes one typed tool parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Schema describes a tool's contract as advertised to models and clients.
type Schema struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

// SchemaBuilder assembles a Schema.
type SchemaBuilder struct {
	schema Schema
}

// NewSchema starts a schema for the named tool.
func NewSchema(name, description string) *SchemaBuilder {
	return &SchemaBuilder{schema: Schema{Name: name, Description: description}}
}

// AddParam appends a parameter.
func (b *SchemaBuilder) AddParam(name, typ, description string, required bool) *SchemaBuilder {
	b.schema.Params = append(b.schema.Params, Param{
		Name:        name,
		Type:        typ,
		Description: description,
		Required:    required,
	})
	return b
}

// Build returns the schema.
func (b *SchemaBuilder) Build() Schema {
	return b.schema
}

// Required lists the names of required parameters in declaration order.
func (s Schema) Required() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}
