package domain

// PersonaRole indica si una persona describe al propio usuario o al match deseado.
// Solo afecta el texto del resumen, nunca el embedding.
type PersonaRole string

const (
	RoleSelf    PersonaRole = "self"
	RoleDesired PersonaRole = "desired"
)

// Persona es el perfil generado a partir de un conjunto de traits:
// resumen legible + embedding L2-normalizado de dimension fija.
type Persona struct {
	Traits    []Trait   `json:"traits"`
	Summary   string    `json:"summary"`
	Embedding []float32 `json:"embedding"`
}
