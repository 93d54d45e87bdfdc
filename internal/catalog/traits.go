package catalog

import "persona-match/internal/domain"

const embeddingDimension = 8

const (
	CategoryPersonality = "Personality"
	CategoryInterests   = "Interests"
	CategoryLifestyle   = "Lifestyle"
	CategoryValues      = "Values"
)

// Ejes del espacio de embedding (dimension 8):
// 0 apertura/creatividad, 1 energia social, 2 calma/estabilidad,
// 3 actividad fisica, 4 curiosidad intelectual, 5 calidez/empatia,
// 6 ambicion, 7 tradicion/familia.
var definitions = []domain.Trait{
	{ID: "adventurous", Category: CategoryPersonality, Name: "Adventurous", Description: "Seeks out new experiences and thrives on the unknown", Vector: []float32{0.7, 0.4, 0.0, 0.6, 0.2, 0.0, 0.3, 0.0}},
	{ID: "creative", Category: CategoryPersonality, Name: "Creative", Description: "Expresses ideas through art, writing or invention", Vector: []float32{0.9, 0.1, 0.1, 0.0, 0.5, 0.2, 0.1, 0.0}},
	{ID: "analytical", Category: CategoryPersonality, Name: "Analytical", Description: "Approaches problems with logic and structure", Vector: []float32{0.2, 0.0, 0.5, 0.0, 0.9, 0.0, 0.4, 0.0}},
	{ID: "empathetic", Category: CategoryPersonality, Name: "Empathetic", Description: "Tunes into the feelings of the people around them", Vector: []float32{0.1, 0.3, 0.4, 0.0, 0.1, 0.9, 0.0, 0.2}},
	{ID: "humorous", Category: CategoryPersonality, Name: "Humorous", Description: "Finds the funny side of almost everything", Vector: []float32{0.4, 0.7, 0.2, 0.0, 0.2, 0.4, 0.0, 0.0}},
	{ID: "easygoing", Category: CategoryPersonality, Name: "Easygoing", Description: "Relaxed and hard to fluster", Vector: []float32{0.2, 0.3, 0.9, 0.1, 0.0, 0.4, 0.0, 0.1}},

	{ID: "hiking", Category: CategoryInterests, Name: "Hiking", Description: "Weekends on trails and mountain tops", Vector: []float32{0.3, 0.2, 0.4, 0.9, 0.0, 0.0, 0.0, 0.1}},
	{ID: "reading", Category: CategoryInterests, Name: "Reading", Description: "Always has a book going", Vector: []float32{0.4, 0.0, 0.5, 0.0, 0.8, 0.1, 0.0, 0.1}},
	{ID: "music", Category: CategoryInterests, Name: "Live music", Description: "Concerts, festivals and vinyl collections", Vector: []float32{0.6, 0.6, 0.1, 0.1, 0.2, 0.2, 0.0, 0.0}},
	{ID: "cooking", Category: CategoryInterests, Name: "Cooking", Description: "Hosts dinners and experiments in the kitchen", Vector: []float32{0.5, 0.4, 0.3, 0.1, 0.2, 0.5, 0.0, 0.4}},
	{ID: "travel", Category: CategoryInterests, Name: "Travel", Description: "Collects passport stamps and street food stories", Vector: []float32{0.7, 0.5, 0.0, 0.4, 0.3, 0.1, 0.2, 0.0}},
	{ID: "gaming", Category: CategoryInterests, Name: "Gaming", Description: "Board games, video games and puzzle nights", Vector: []float32{0.3, 0.3, 0.3, 0.0, 0.6, 0.1, 0.1, 0.0}},

	{ID: "early-riser", Category: CategoryLifestyle, Name: "Early riser", Description: "Best hours are before nine in the morning", Vector: []float32{0.0, 0.1, 0.6, 0.4, 0.1, 0.0, 0.4, 0.3}},
	{ID: "night-owl", Category: CategoryLifestyle, Name: "Night owl", Description: "Comes alive after midnight", Vector: []float32{0.5, 0.5, 0.0, 0.0, 0.3, 0.0, 0.1, 0.0}},
	{ID: "fitness", Category: CategoryLifestyle, Name: "Fitness focused", Description: "Training is a fixed part of the week", Vector: []float32{0.1, 0.2, 0.3, 0.9, 0.0, 0.0, 0.5, 0.0}},
	{ID: "homebody", Category: CategoryLifestyle, Name: "Homebody", Description: "Happiest with tea, blankets and good company at home", Vector: []float32{0.1, 0.0, 0.8, 0.0, 0.2, 0.4, 0.0, 0.5}},
	{ID: "social-butterfly", Category: CategoryLifestyle, Name: "Social butterfly", Description: "Knows everyone at the party within an hour", Vector: []float32{0.3, 0.9, 0.1, 0.1, 0.0, 0.4, 0.1, 0.0}},

	{ID: "family", Category: CategoryValues, Name: "Family oriented", Description: "Family ties come first", Vector: []float32{0.0, 0.2, 0.5, 0.0, 0.0, 0.5, 0.1, 0.9}},
	{ID: "ambition", Category: CategoryValues, Name: "Ambitious", Description: "Sets big goals and chases them", Vector: []float32{0.2, 0.3, 0.0, 0.2, 0.4, 0.0, 0.9, 0.0}},
	{ID: "honesty", Category: CategoryValues, Name: "Honest", Description: "Direct and transparent, even when it costs", Vector: []float32{0.1, 0.1, 0.5, 0.0, 0.2, 0.5, 0.1, 0.3}},
	{ID: "spirituality", Category: CategoryValues, Name: "Spiritual", Description: "Grounded by practice, faith or mindfulness", Vector: []float32{0.3, 0.0, 0.8, 0.1, 0.1, 0.4, 0.0, 0.4}},
	{ID: "environment", Category: CategoryValues, Name: "Environmentally conscious", Description: "Lives with the planet in mind", Vector: []float32{0.3, 0.1, 0.4, 0.3, 0.3, 0.4, 0.0, 0.2}},
}
