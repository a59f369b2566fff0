// Package filter implements spotfd's ignore/visibility engine: given an
// absolute candidate path produced by the mdfind collaborator, it decides
// whether a recursive, fd-like walker would have shown that path.
package filter

// Config is the immutable, per-invocation configuration for a Filter.
type Config struct {
	// Cwd is the invocation's working directory (absolute).
	Cwd string

	// SearchBase is the absolute directory every candidate is expected to
	// fall under.
	SearchBase string

	// IncludeHidden, when false, excludes any candidate with a hidden path
	// component between SearchBase and the candidate.
	IncludeHidden bool

	// IgnoreEnabled, when false, disables all ignore-file and global-ignore
	// layers. Hidden filtering is independent of this flag.
	IgnoreEnabled bool
}

// Decision is the outcome of evaluating one ignore layer against a
// candidate. The zero value is DecisionNone.
type Decision int

const (
	// DecisionNone means the layer abstained: no pattern in it applied.
	DecisionNone Decision = iota
	// DecisionIgnore means the layer's last matching pattern excludes the path.
	DecisionIgnore
	// DecisionWhitelist means the layer's last matching pattern re-includes the path.
	DecisionWhitelist
)

func (d Decision) String() string {
	switch d {
	case DecisionIgnore:
		return "ignore"
	case DecisionWhitelist:
		return "whitelist"
	default:
		return "none"
	}
}
