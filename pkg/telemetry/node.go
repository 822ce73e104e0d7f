package telemetry

import (
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

const nodeIDLen = 12

// NodeID returns an id of this machine suitable for a topic level.
// It falls back to "rtio" if the machine id is unavailable.
func NodeID() string {
	id, err := machineid.ProtectedID("rtio")
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "rtio"
	}
	return SanitizeTopicLevel(id)[:min(nodeIDLen, len(id))]
}

// NewSession returns a new session id.
func NewSession() string {
	return uuid.NewString()
}

// SanitizeTopicLevel makes s usable as one topic level.
func SanitizeTopicLevel(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ':
			return '_'
		}
		return r
	}, s)
}
