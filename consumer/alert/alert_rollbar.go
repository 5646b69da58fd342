package alert

import (
	"github.com/rollbar/rollbar-go"
)

// Rollbar reports alerts as error items on the process-wide rollbar client.
type Rollbar struct{}

// NewRollbar configures the rollbar client.
func NewRollbar(token, environment string) *Rollbar {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetServerRoot("github.com/4406arthur/copilot")
	return &Rollbar{}
}

// PushNotify ...
func (r *Rollbar) PushNotify(msg string) error {
	rollbar.Message(rollbar.ERR, msg)
	return nil
}

// Flush blocks until queued items are sent.
func (r *Rollbar) Flush() {
	rollbar.Wait()
}
