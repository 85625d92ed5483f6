package status

// Status is one step of the fixed linear feature status flow.
type Status string

const (
	Idea          Status = "idea"
	Specification Status = "specification"
	Development   Status = "development"
	Testing       Status = "testing"
	Live          Status = "live"
)

// Flow lists the statuses in their canonical order.
var Flow = []Status{Idea, Specification, Development, Testing, Live}

var progress = map[Status]float64{
	Idea:          0,
	Specification: 20,
	Development:   60,
	Testing:       80,
	Live:          100,
}

func IsValid(s Status) bool {
	for _, v := range Flow {
		if v == s {
			return true
		}
	}
	return false
}

// Next returns the following status in the flow, or empty when s is the last one.
func Next(s Status) Status {
	for i, v := range Flow {
		if v == s && i < len(Flow)-1 {
			return Flow[i+1]
		}
	}
	return ""
}

// Previous returns the preceding status in the flow, or empty when s is the first one.
func Previous(s Status) Status {
	for i, v := range Flow {
		if v == s && i > 0 {
			return Flow[i-1]
		}
	}
	return ""
}

func IsFinal(s Status) bool {
	return s == Live
}

// Progress maps a status to a completion percentage for leaf features.
func Progress(s Status) float64 {
	return progress[s]
}
