package guest

// Session ties this terminal to a table and a backend ordering window.
// TableNumber is a display label and may be empty.
type Session struct {
	TableID     string `json:"tableId" bson:"table_id"`
	SessionID   string `json:"sessionId" bson:"session_id"`
	TableNumber string `json:"tableNumber,omitempty" bson:"table_number,omitempty"`
}

// Complete reports whether the session can address orders.
func (s Session) Complete() bool {
	return s.TableID != "" && s.SessionID != ""
}

func (s Session) IsZero() bool {
	return s == Session{}
}
