package nn

import (
	"fmt"

	"github.com/djeday123/goml-sentiment/core"
)

// State is a serializable snapshot of a classifier: its config and the
// row-major values of every parameter, keyed by parameter name.
type State struct {
	Config  ClassifierConfig     `json:"config"`
	Weights map[string][]float64 `json:"weights"`
}

// State copies the current weights.
func (m *Classifier) State() State {
	s := State{Config: m.Config, Weights: make(map[string][]float64)}
	for _, p := range m.Parameters() {
		s.Weights[p.Name] = append([]float64(nil), p.Data()...)
	}
	return s
}

// FromState rebuilds a classifier from a snapshot.
func FromState(s State) (*Classifier, error) {
	m, err := NewClassifier(s.Config)
	if err != nil {
		return nil, err
	}
	for _, p := range m.Parameters() {
		w, ok := s.Weights[p.Name]
		if !ok {
			return nil, core.NewDataError("state is missing parameter %q", p.Name)
		}
		if len(w) != p.NumElements() {
			return nil, &core.DataError{
				Reason: "restoring " + p.Name,
				Err:    fmt.Errorf("got %d values, want %d", len(w), p.NumElements()),
			}
		}
		copy(p.Data(), w)
	}
	return m, nil
}
