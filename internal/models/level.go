package models

import "time"

// Level represents a rung on the programme ladder (100 level through 500 level).
// Rank orders levels for promotion; higher rank means later in the programme.
type Level struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Rank      int       `db:"rank" json:"rank"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
