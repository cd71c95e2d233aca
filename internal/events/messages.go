package events

import (
	"encoding/json"
	"time"
)

// ImportCompletedMessage announces that a CSV import finished, whatever the
// outcome. Counts are included so consumers do not have to reread the rows.
type ImportCompletedMessage struct {
	BudgetID    int64     `json:"budget_id"`
	Kind        string    `json:"kind"`
	Created     int       `json:"created"`
	Errors      int       `json:"errors"`
	CompletedAt time.Time `json:"completed_at"`
}

func NewImportCompletedMessage(budgetID int64, kind string, created, errorCount int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		BudgetID:    budgetID,
		Kind:        kind,
		Created:     created,
		Errors:      errorCount,
		CompletedAt: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
