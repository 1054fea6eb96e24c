package cluster

import "fmt"

// ClusteringError reports feature data or a k that cannot be clustered.
// It is fatal for the clustering chart only.
type ClusteringError struct {
	Column string
	Reason string
	Err    error
}

func (e *ClusteringError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("clustering: column %q: %s", e.Column, e.Reason)
	}
	return "clustering: " + e.Reason
}

func (e *ClusteringError) Unwrap() error { return e.Err }
