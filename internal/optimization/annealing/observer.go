package annealing

import "github.com/copyleftdev/layoutevo/internal/evaluation"

// Observer is notified synchronously from inside Optimize. Implementations
// must not call back into the running optimizer.
type Observer interface {
	// OnStart is called once before the first iteration with the iteration budget.
	OnStart(maxIters int)
	// OnProgress is called every ProgressInterval iterations.
	OnProgress(iteration int)
	// OnNewBest is called when an accepted candidate improves on the best cost so far.
	OnNewBest(layout string, result *evaluation.Result)
}

// ObserverFuncs adapts optional functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Start    func(maxIters int)
	Progress func(iteration int)
	NewBest  func(layout string, result *evaluation.Result)
}

func (f ObserverFuncs) OnStart(maxIters int) {
	if f.Start != nil {
		f.Start(maxIters)
	}
}

func (f ObserverFuncs) OnProgress(iteration int) {
	if f.Progress != nil {
		f.Progress(iteration)
	}
}

func (f ObserverFuncs) OnNewBest(layout string, result *evaluation.Result) {
	if f.NewBest != nil {
		f.NewBest(layout, result)
	}
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnStart(maxIters int) {
	for _, o := range m {
		o.OnStart(maxIters)
	}
}

func (m MultiObserver) OnProgress(iteration int) {
	for _, o := range m {
		o.OnProgress(iteration)
	}
}

func (m MultiObserver) OnNewBest(layout string, result *evaluation.Result) {
	for _, o := range m {
		o.OnNewBest(layout, result)
	}
}

// EventKind identifies an Event.
type EventKind int

const (
	EventStart EventKind = iota
	EventProgress
	EventNewBest
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventProgress:
		return "progress"
	case EventNewBest:
		return "new_best"
	default:
		return "unknown"
	}
}

// Event is one observer notification delivered through a ChannelObserver.
type Event struct {
	Kind      EventKind
	MaxIters  int
	Iteration int
	Layout    string
	Result    *evaluation.Result
}

// ChannelObserver delivers notifications as events on a channel so that a
// separate goroutine can consume them. Sends block when the buffer is full.
type ChannelObserver struct {
	events chan Event
}

// NewChannelObserver creates an observer with the given channel buffer.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{events: make(chan Event, buffer)}
}

// Events returns the event stream.
func (c *ChannelObserver) Events() <-chan Event {
	return c.events
}

// Close ends the event stream. Call it once the run has returned.
func (c *ChannelObserver) Close() {
	close(c.events)
}

func (c *ChannelObserver) OnStart(maxIters int) {
	c.events <- Event{Kind: EventStart, MaxIters: maxIters}
}

func (c *ChannelObserver) OnProgress(iteration int) {
	c.events <- Event{Kind: EventProgress, Iteration: iteration}
}

func (c *ChannelObserver) OnNewBest(layout string, result *evaluation.Result) {
	c.events <- Event{Kind: EventNewBest, Layout: layout, Result: result}
}

type nopObserver struct{}

func (nopObserver) OnStart(int)                          {}
func (nopObserver) OnProgress(int)                       {}
func (nopObserver) OnNewBest(string, *evaluation.Result) {}
