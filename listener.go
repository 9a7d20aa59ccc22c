package autofilter

import "fmt"

// Listener is a long-running service started by the daemon alongside the
// main tail-classify-flush loop, such as the admin/metrics listener.
type Listener interface {
	Start() error
	Stop() error
	fmt.Stringer
}
