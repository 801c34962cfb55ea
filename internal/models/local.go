package models

import "time"

// LocalModel is a biological model added through this service rather than
// received from the upstream project API.
type LocalModel struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	ChallengeID int64     `json:"challengeId"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Model returns the tree representation of a local model.
func (l LocalModel) Model() BiologicalModel {
	return BiologicalModel{ID: l.ID, Name: l.Name}
}
