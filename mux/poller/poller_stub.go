//go:build !linux

package poller

import "fmt"

// NewPoller creates the platform poller. Only Linux (epoll) is supported
func NewPoller() (IPoller, error) {
	return nil, fmt.Errorf("no poller implementation for this platform")
}
