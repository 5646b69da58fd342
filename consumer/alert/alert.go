// Package alert pushes notices about jobs that did not complete.
package alert

import (
	"github.com/4406arthur/copilot/domain"
)

// Multi fans a notice out to every alert, returning the first error.
type Multi []domain.Alert

// PushNotify ...
func (m Multi) PushNotify(msg string) error {
	var first error
	for _, a := range m {
		if err := a.PushNotify(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
