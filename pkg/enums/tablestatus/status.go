package tablestatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Selectable reports whether a guest may open a new session on a table in this status.
func (s Status) Selectable() bool {
	return s == Statuses.Free
}

type Enum struct {
	Free           Status
	Waiting        Status
	Taken          Status
	Served         Status
	RequestingBill Status
	Finished       Status
}

var Statuses = Enum{
	Free:           Status{Name: "free"},
	Waiting:        Status{Name: "waiting"},
	Taken:          Status{Name: "taken"},
	Served:         Status{Name: "served"},
	RequestingBill: Status{Name: "requesting_bill"},
	Finished:       Status{Name: "finished"},
}

var All = []Status{
	Statuses.Free,
	Statuses.Waiting,
	Statuses.Taken,
	Statuses.Served,
	Statuses.RequestingBill,
	Statuses.Finished,
}

// aliases maps legacy backend spellings onto canonical statuses.
var aliases = map[string]Status{
	"available": Statuses.Free,
}

// Parse normalizes a wire status. Matching is case-insensitive and tolerates
// surrounding whitespace.
func Parse(raw string) (Status, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if s := ByName(name); s != nil {
		return *s, true
	}
	if s, ok := aliases[name]; ok {
		return s, true
	}
	return Status{Name: name}, false
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsSelectable reports whether a raw wire status denotes a free table.
func IsSelectable(raw string) bool {
	s, ok := Parse(raw)
	return ok && s.Selectable()
}
