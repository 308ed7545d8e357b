package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Competition{},
		&Participant{},
		&UserCompetition{},
		&Message{},
	}
}
