//go:build race

package rc

import "testing"

// skipRace skips tests that exercise lfq SPSC transport across
// goroutines. The race detector tracks happens-before per variable and
// cannot see the ring's cross-variable ordering (store-release on the
// slot, load-acquire on the index).
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: SPSC uses cross-variable memory ordering")
}
