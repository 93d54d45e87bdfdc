package domain

// PersonaSelection es el registro autoritativo de la seleccion guardada de un usuario.
// Se reemplaza completo en cada save; nunca se actualiza parcialmente.
type PersonaSelection struct {
	UserID           int64    `json:"userId"`
	SelectedTraitIDs []string `json:"selectedTraitIds"`
	SelfPersona      Persona  `json:"selfPersona"`
	DesiredMatch     *Persona `json:"desiredMatch,omitempty"`
}
