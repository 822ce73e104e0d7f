package rc

import (
	"context"
	"sort"
	"sync"

	"github.com/robotalks/rtio.go/pkg/capture"
	"github.com/robotalks/rtio.go/pkg/framework"
)

// Group is a set of redundant links arbitrated by one Mask.
type Group struct {
	Mask *Mask

	pipeline *capture.Pipeline
	lock     sync.Mutex
	links    []*Link
}

// NewGroup creates a group whose links attach to pipeline by default.
func NewGroup(pipeline *capture.Pipeline) *Group {
	return &Group{Mask: NewMask(), pipeline: pipeline}
}

// Add enables links on the default pipeline, highest ranked first.
func (g *Group) Add(links ...*Link) error {
	return g.AddOn(g.pipeline, links...)
}

// AddOn enables links on a specific pipeline, for receivers on
// separate ports.
func (g *Group) AddOn(p *capture.Pipeline, links ...*Link) error {
	sorted := append([]*Link(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].priority < sorted[j].priority })

	g.lock.Lock()
	defer g.lock.Unlock()
	var errs framework.AggregatedError
	for _, l := range sorted {
		if err := g.checkLocked(l); err != nil {
			errs.Add(err)
			continue
		}
		if err := l.Enable(p); err != nil {
			errs.Add(err)
			continue
		}
		g.links = append(g.links, l)
	}
	sort.SliceStable(g.links, func(i, j int) bool { return g.links[i].priority < g.links[j].priority })
	return errs.Aggregate()
}

func (g *Group) checkLocked(l *Link) error {
	if l.mask != g.Mask {
		return ErrMaskMismatch
	}
	for _, cur := range g.links {
		if cur.priority == l.priority {
			return ErrPriorityInUse
		}
	}
	return nil
}

// Links returns the links ordered by priority.
func (g *Group) Links() []*Link {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]*Link(nil), g.links...)
}

// Link finds a link by name.
func (g *Group) Link(name string) *Link {
	for _, l := range g.Links() {
		if l.name == name {
			return l
		}
	}
	return nil
}

// Active returns the link currently winning arbitration, nil if none.
func (g *Group) Active() *Link {
	lowest := g.Mask.Lowest()
	for _, l := range g.Links() {
		if l.priority == lowest {
			return l
		}
	}
	return nil
}

// Run implements framework.Runnable. It runs the consumer task of every
// link until ctx is done.
func (g *Group) Run(ctx context.Context) error {
	runner := framework.NewRunnerWith(ctx)
	for _, l := range g.Links() {
		runner.Go(l)
	}
	return runner.Wait()
}

// Sticks returns the stick channels of the winning link. ok is false when
// no link is active.
func (g *Group) Sticks() (ch [4]float32, ok bool) {
	l := g.Active()
	if l == nil {
		return
	}
	l.Read(func(s any) {
		if st, is := s.(Sticks); is {
			ch, ok = st.Sticks(), true
		}
	})
	return
}
