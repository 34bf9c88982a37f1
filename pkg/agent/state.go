package agent

// State tracks where an agent is in its lifecycle. Transitions run strictly
// forward: Init -> Ready -> Running -> (Finished | Compacting -> Exhausted).
type State int

const (
	// StateInit is the freshly constructed agent, before the system prompt
	// exists.
	StateInit State = iota

	// StateReady has the system prompt in place and awaits the first user
	// message.
	StateReady

	// StateRunning is the reasoning loop: chat, parse, dispatch, append.
	StateRunning

	// StateCompacting is the single history-condensing round entered when
	// the iteration budget runs out before a finish call.
	StateCompacting

	// StateFinished means the agent called finish and produced its final
	// text.
	StateFinished

	// StateExhausted means the iteration budget ran out; the history has
	// been compacted down to the goal plus a condensed context.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompacting:
		return "compacting"
	case StateFinished:
		return "finished"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}
