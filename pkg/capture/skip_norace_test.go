//go:build !race

package capture

import "testing"

func skipRace(testing.TB) {}
