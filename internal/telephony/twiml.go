package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"time"

	"intake-platform/internal/intake"
)

// Minimal TwiML builder for rendering intake directives. Only the verbs the
// intake flow needs are modeled; no provider SDK dependency at this
// boundary.

const defaultVoice = "Polly.Matthew"

// Endpoints maps logical next-actions to webhook callback paths.
type Endpoints struct {
	RecordingAction string
	DigitsAction    string
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr"`
	MaxLength int      `xml:"maxLength,attr,omitempty"`
	Timeout   int      `xml:"timeout,attr,omitempty"`
	PlayBeep  bool     `xml:"playBeep,attr"`
}

type twimlGather struct {
	XMLName   xml.Name  `xml:"Gather"`
	Action    string    `xml:"action,attr"`
	Input     string    `xml:"input,attr,omitempty"`
	NumDigits int       `xml:"numDigits,attr,omitempty"`
	Timeout   int       `xml:"timeout,attr,omitempty"`
	Say       *twimlSay `xml:"Say,omitempty"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:"Number,omitempty"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderTwiML maps an intake directive to a TwiML document.
func RenderTwiML(d intake.Directive, ep Endpoints) (string, error) {
	var r twimlResponse

	say := func(text string) {
		if text != "" {
			r.Verbs = append(r.Verbs, twimlSay{Voice: defaultVoice, Text: text})
		}
	}

	switch d.Kind {
	case intake.DirectiveSay:
		say(d.Speech)
		// Keep the line open; the next machine response decides what follows.
		r.Verbs = append(r.Verbs, twimlPause{Length: 2})

	case intake.DirectiveRecord:
		if ep.RecordingAction == "" {
			return "", errors.New("telephony: recording action required for record directive")
		}
		say(d.Speech)
		r.Verbs = append(r.Verbs, twimlPause{Length: 1})
		r.Verbs = append(r.Verbs, twimlRecord{
			Action:    ep.RecordingAction,
			MaxLength: seconds(d.MaxDuration),
			Timeout:   5,
			PlayBeep:  true,
		})
		// Reached only when nothing was recorded; an empty transcript then
		// routes the caller to a human.
		say("Sorry, I didn't catch that.")
		r.Verbs = append(r.Verbs, twimlRedirect{URL: ep.RecordingAction})

	case intake.DirectiveGather:
		if ep.DigitsAction == "" {
			return "", errors.New("telephony: digits action required for gather directive")
		}
		g := twimlGather{
			Action:    ep.DigitsAction,
			Input:     "dtmf",
			NumDigits: d.NumDigits,
			Timeout:   seconds(d.Timeout),
		}
		if d.Speech != "" {
			g.Say = &twimlSay{Voice: defaultVoice, Text: d.Speech}
		}
		r.Verbs = append(r.Verbs, g)
		// Gather timeout falls through here; redirecting with no digits
		// lets the intake default apply instead of stalling the call.
		r.Verbs = append(r.Verbs, twimlRedirect{URL: ep.DigitsAction})

	case intake.DirectiveTransfer:
		if d.Destination == "" {
			return "", errors.New("telephony: destination required for transfer directive")
		}
		say(d.Speech)
		r.Verbs = append(r.Verbs, twimlDial{Number: d.Destination})

	case intake.DirectiveHangup:
		say(d.Speech)
		r.Verbs = append(r.Verbs, twimlHangup{})

	default:
		return "", errors.New("telephony: unknown directive kind")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
