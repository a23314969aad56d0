package container

import (
	"github.com/samber/lo"

	"github.com/silver2row/ctrl/block"
)

// IsRunningSignal is the signal a diagram writes a falsy value to in order to stop the loop
// that drives it.
const IsRunningSignal = "is_running"

type signalTable struct {
	names  []string
	values map[string]interface{}
}

func newSignalTable() *signalTable {
	return &signalTable{values: map[string]interface{}{}}
}

func (s *signalTable) has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *signalTable) add(name string) error {
	if s.has(name) {
		return &block.DuplicateSignalError{Name: name}
	}
	s.names = append(s.names, name)
	s.values[name] = 0.0
	return nil
}

func (s *signalTable) remove(name string) error {
	if !s.has(name) {
		return &block.UnknownSignalError{Name: name}
	}
	delete(s.values, name)
	s.names = lo.Without(s.names, name)
	return nil
}

func (s *signalTable) get(name string) (interface{}, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, &block.UnknownSignalError{Name: name}
	}
	return v, nil
}

func (s *signalTable) set(name string, value interface{}) error {
	if !s.has(name) {
		return &block.UnknownSignalError{Name: name}
	}
	s.values[name] = value
	return nil
}

func (s *signalTable) gather(names []string) ([]interface{}, error) {
	values := make([]interface{}, len(names))
	for i, name := range names {
		v, err := s.get(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (s *signalTable) list() []string {
	return append([]string{}, s.names...)
}
