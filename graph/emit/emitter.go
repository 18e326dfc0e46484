package emit

// Emitter receives events from workflow execution.
//
// Implementations must be safe for concurrent use, since separate runs of
// one workflow may emit at the same time. Emit must not block for long or
// panic; a failing backend should drop the event.
type Emitter interface {
	Emit(event Event)
}

// MultiEmitter fans each event out to several emitters in order.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter returns an emitter that forwards to every non-nil emitter.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			m.emitters = append(m.emitters, e)
		}
	}
	return m
}

// Emit forwards event to each configured emitter.
func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

// Len returns the number of configured emitters.
func (m *MultiEmitter) Len() int {
	return len(m.emitters)
}
