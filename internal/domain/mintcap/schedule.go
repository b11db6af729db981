package mintcap

// Granularity names the fixed interval width a schedule is declared over.
type Granularity string

// Weekly is the only granularity the cap currently supports.
const Weekly Granularity = "WEEKLY"

const weekMs int64 = 7 * 24 * 60 * 60 * 1000

// Period is one ceiling checkpoint: from StartMs on, every interval owned
// by the line may mint at most Ceiling weight until a later period takes
// over.
type Period struct {
	StartMs int64
	Ceiling float64
}

// Line caps one address family, named by its prefix, with a chronological
// sequence of ceiling checkpoints.
type Line struct {
	Prefix  Address
	Periods []Period
}

// Schedule is the caller-supplied minting budget configuration. It is
// read-only to this package.
type Schedule struct {
	Granularity Granularity
	Lines       []Line
}

// Window is one interval of the partition together with the contribution
// addresses active in it. Partitions are ordered, contiguous and
// non-overlapping, and list each address in at most one window.
type Window struct {
	StartMs   int64     `json:"start_ms"`
	EndMs     int64     `json:"end_ms"`
	Addresses []Address `json:"addresses"`
}
