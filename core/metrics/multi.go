package metrics

import "errors"

// MultiSink forwards every observation to all of its sinks. A failing sink
// does not stop the others; the errors are joined.
type MultiSink struct {
	Sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	return m.each(func(s Sink) error { return s.RecordAssignment(ev) })
}

func (m *MultiSink) RecordUnserved(ev UnservedEvent) error {
	return m.each(func(s Sink) error { return s.RecordUnserved(ev) })
}

func (m *MultiSink) RecordReassignment(ev ReassignmentEvent) error {
	return m.each(func(s Sink) error { return s.RecordReassignment(ev) })
}

func (m *MultiSink) RecordFleetState(st FleetState) error {
	return m.each(func(s Sink) error { return s.RecordFleetState(st) })
}
