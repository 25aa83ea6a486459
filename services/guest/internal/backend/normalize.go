package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
)

// listKeys are the wrapper fields the backend has used for collections over
// time: Spring pages (content), paginated envelopes (data) and plain item bags.
var listKeys = []string{"content", "data", "items"}

const maxListDepth = 2

// decodeList decodes a collection regardless of whether the backend returned a
// bare array or one of the known wrappers. Unknown shapes decode to an empty list.
func decodeList(raw json.RawMessage, dest interface{}) error {
	list := extractList(raw, 0)
	if list == nil {
		list = json.RawMessage("[]")
	}
	if err := json.Unmarshal(list, dest); err != nil {
		return fmt.Errorf("decode collection: %w", err)
	}
	return nil
}

func extractList(raw json.RawMessage, depth int) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		return trimmed
	case '{':
		if depth >= maxListDepth {
			return nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		for _, key := range listKeys {
			if nested, ok := obj[key]; ok {
				if list := extractList(nested, depth+1); list != nil {
					return list
				}
			}
		}
	}
	return nil
}

// isNull reports whether a payload is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// FlexString accepts identifiers and labels the backend sends either as JSON
// strings or as numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(trimmed))
	}
	*f = FlexString(n.String())
	return nil
}

// normalizeStatus lower-cases wire statuses and folds legacy aliases.
func normalizeStatus(raw string) string {
	status, _ := tablestatus.Parse(raw)
	return status.Code()
}

type tableWire struct {
	ID               FlexString `json:"id"`
	Number           FlexString `json:"number"`
	TableNumber      FlexString `json:"tableNumber"`
	Capacity         int        `json:"capacity"`
	Status           string     `json:"status"`
	Location         string     `json:"location"`
	CurrentSessionID FlexString `json:"currentSessionId"`
	AssignedWaiter   string     `json:"assignedWaiter"`
}

func (w tableWire) normalize() Table {
	number := strings.TrimSpace(string(w.TableNumber))
	if number == "" {
		number = strings.TrimSpace(string(w.Number))
	}
	return Table{
		ID:               string(w.ID),
		Number:           number,
		Status:           normalizeStatus(w.Status),
		Capacity:         w.Capacity,
		Location:         w.Location,
		CurrentSessionID: string(w.CurrentSessionID),
		AssignedWaiter:   w.AssignedWaiter,
	}
}
