//go:build !race

package rc

import "testing"

func skipRace(testing.TB) {}
