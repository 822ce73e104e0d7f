//go:build !race

package system

import "testing"

func skipRace(testing.TB) {}
