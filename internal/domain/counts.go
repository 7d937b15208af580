package domain

// RowCounts summarises what one persistence routine did with a payload.
type RowCounts struct {
	Created        int   `json:"created"`
	Updated        int   `json:"updated"`
	Skipped        int   `json:"skipped"`
	Unresolved     int   `json:"unresolved"`
	Invalid        int   `json:"invalid"`
	Ignored        int   `json:"ignored"`
	HistoryCreated int   `json:"history_created"`
	HistorySkipped int   `json:"history_skipped"`
	EventID        int64 `json:"event_id,omitempty"`
}

func (c RowCounts) Add(o RowCounts) RowCounts {
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Unresolved += o.Unresolved
	c.Invalid += o.Invalid
	c.Ignored += o.Ignored
	c.HistoryCreated += o.HistoryCreated
	c.HistorySkipped += o.HistorySkipped
	if o.EventID != 0 {
		c.EventID = o.EventID
	}
	return c
}

// Written is the number of rows that changed the store.
func (c RowCounts) Written() int {
	return c.Created + c.Updated + c.HistoryCreated
}
