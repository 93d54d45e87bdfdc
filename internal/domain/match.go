package domain

// Match es un candidato rankeado para un usuario. Se construye bajo demanda
// y nunca se persiste.
type Match struct {
	UserID      int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Similarity  float64 `json:"similarity"`
	SelfPersona Persona `json:"selfPersona"`
}
