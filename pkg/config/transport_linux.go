//go:build linux

package config

import (
	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/can/socketcan"
)

func openSocketCAN(iface string, backlog int) (can.Transport, error) {
	bus, err := socketcan.Open(iface, backlog)
	if err != nil {
		return nil, err
	}
	return bus, nil
}
