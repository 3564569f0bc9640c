// Package status defines service and monitor status values and the single
// aggregation rule that rolls monitor statuses up into a service status.
package status

// Status is the health state of a monitor or a service.
type Status string

const (
	Operational Status = "operational"
	Degraded    Status = "degraded"
	Down        Status = "down"
	Unknown     Status = "unknown"
)

// Valid reports whether s is one of the four known statuses.
func Valid(s Status) bool {
	switch s {
	case Operational, Degraded, Down, Unknown:
		return true
	}
	return false
}

// Aggregate computes the service-level status from monitor status counts.
// Every consumer of an aggregated status must go through this function.
//
//	no known statuses -> unknown
//	all operational   -> operational
//	all down          -> down
//	any mix           -> degraded
func Aggregate(operational, degraded, down int) Status {
	total := operational + degraded + down
	switch {
	case total == 0:
		return Unknown
	case operational == total:
		return Operational
	case down == total:
		return Down
	default:
		return Degraded
	}
}

// AggregateMap rolls up a per-monitor status map. Unknown entries carry no
// information and are excluded from the counts.
func AggregateMap(statuses map[int64]Status) Status {
	var operational, degraded, down int
	for _, s := range statuses {
		switch s {
		case Operational:
			operational++
		case Degraded:
			degraded++
		case Down:
			down++
		}
	}
	return Aggregate(operational, degraded, down)
}
