//go:build !linux

package config

import (
	"errors"

	"github.com/robotalks/rtio.go/pkg/can"
)

func openSocketCAN(string, int) (can.Transport, error) {
	return nil, errors.New("socketcan is only available on linux")
}
