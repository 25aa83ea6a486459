package roundstatus

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

type Enum struct {
	Pending   Status
	Confirmed Status
	Failed    Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending"},
	Confirmed: Status{Name: "confirmed"},
	Failed:    Status{Name: "failed"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Confirmed,
	Statuses.Failed,
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
