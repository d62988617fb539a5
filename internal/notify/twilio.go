package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender delivers the record-review SMS through the Twilio REST API.
//
// Delivery is attempted exactly once; the state machine records a failure
// for manual follow-up instead of retrying.

type TwilioSender struct {
	client *twilio.RestClient
	from   string
	body   string
}

// NewTwilioSender builds a sender. timeout bounds the underlying HTTP call
// so a slow provider surfaces as a failure instead of hanging the call.
func NewTwilioSender(accountSID, authToken, from string, timeout time.Duration) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)
	return &TwilioSender{
		client: client,
		from:   from,
		body:   "Thanks for calling! Review your request here: %s",
	}
}

func (s *TwilioSender) Send(ctx context.Context, destination, reference string) error {
	if strings.TrimSpace(destination) == "" {
		return fmt.Errorf("notify: destination required")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf(s.body, reference))

	// The Twilio SDK does not thread a context through; the client-level
	// timeout set in the constructor bounds this call.
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("notify: send sms: %w", err)
	}
	return nil
}
