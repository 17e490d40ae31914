package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// ErrIllegalTransition is a programming error in the category flow.
var ErrIllegalTransition = eris.New("pipeline: illegal state transition")

// transitions lists the legal successors of each state. Fetching may repeat,
// advancing to the next source in the chain.
var transitions = map[model.State][]model.State{
	model.StatePending:     {model.StateFetching, model.StateFailed},
	model.StateFetching:    {model.StateFetching, model.StateNormalizing, model.StateFailed},
	model.StateNormalizing: {model.StateMerged, model.StateFailed},
	model.StateMerged:      {model.StateWritten, model.StateFailed},
}

// machine tracks one category's position. Source index is only meaningful
// while fetching.
type machine struct {
	state   model.State
	source  int
	history []model.State
}

func newMachine() *machine {
	return &machine{state: model.StatePending, source: -1, history: []model.State{model.StatePending}}
}

// to moves to next, rejecting transitions not in the table.
func (m *machine) to(next model.State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return eris.Wrapf(ErrIllegalTransition, "%s -> %s", m.state, next)
}

// fetch enters Fetching(i). Sources are visited strictly in order.
func (m *machine) fetch(i int) error {
	if i != m.source+1 {
		return eris.Wrapf(ErrIllegalTransition, "fetching(%d) -> fetching(%d)", m.source, i)
	}
	if err := m.to(model.StateFetching); err != nil {
		return err
	}
	m.source = i
	return nil
}
