package domain

// Trait es un atributo etiquetado del catalogo estatico, con su vector de embedding.
type Trait struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Vector      []float32 `json:"vector,omitempty"`
}
