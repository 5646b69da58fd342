package alert

import (
	"bytes"
	"net/http"

	"github.com/gojektech/heimdall/v6"
	"github.com/pkg/errors"
	"github.com/pquerna/ffjson/ffjson"
)

// SlackWebhook ...
type SlackWebhook struct {
	httpClient heimdall.Doer
	url        string
}

type slackWebhookRQ struct {
	Text string `json:"text"`
}

// NewSlackWebhook ...
func NewSlackWebhook(httpCli heimdall.Doer, url string) *SlackWebhook {
	return &SlackWebhook{
		httpClient: httpCli,
		url:        url,
	}
}

// PushNotify ...
func (s *SlackWebhook) PushNotify(msg string) error {
	payload, err := ffjson.Marshal(&slackWebhookRQ{
		Text: msg,
	})
	if err != nil {
		return errors.Wrap(err, "encode slack message")
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewBuffer(payload))
	if err != nil {
		return errors.Wrap(err, "build slack request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "post slack webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("wrong http status code: %d", resp.StatusCode)
	}

	return nil
}
