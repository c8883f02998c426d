// Package services provides external service integrations and technical concerns like telephony markup
package services

import (
	"encoding/xml"
	"fmt"
)

// TwiML content type returned to the telephony provider
const TwiMLContentType = "text/xml; charset=utf-8"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name   `xml:"Gather"`
	Input         string     `xml:"input,attr,omitempty"`
	NumDigits     int        `xml:"numDigits,attr,omitempty"`
	Action        string     `xml:"action,attr,omitempty"`
	Method        string     `xml:"method,attr,omitempty"`
	SpeechTimeout string     `xml:"speechTimeout,attr,omitempty"`
	Language      string     `xml:"language,attr,omitempty"`
	Says          []twimlSay `xml:"Say"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// GatherOptions configures a <Gather>
type GatherOptions struct {
	Input     string // "dtmf" or "speech dtmf"
	NumDigits int
	Action    string
	Method    string
}

// TwiML builds a TwiML document verb by verb
type TwiML struct {
	voice    string
	language string
	verbs    []any
}

// NewTwiML creates a builder whose <Say> verbs use voice and language
func NewTwiML(voice, language string) *TwiML {
	return &TwiML{voice: voice, language: language}
}

func (t *TwiML) say(text string) twimlSay {
	return twimlSay{Voice: t.voice, Language: t.language, Text: text}
}

// Say speaks text
func (t *TwiML) Say(text string) *TwiML {
	t.verbs = append(t.verbs, t.say(text))
	return t
}

// Gather collects input while speaking prompts
func (t *TwiML) Gather(opts GatherOptions, prompts ...string) *TwiML {
	g := twimlGather{
		Input:     opts.Input,
		NumDigits: opts.NumDigits,
		Action:    opts.Action,
		Method:    opts.Method,
	}
	if g.Method == "" {
		g.Method = "POST"
	}
	if g.Input != "dtmf" && g.Input != "" {
		g.SpeechTimeout = "auto"
		g.Language = t.language
	}
	for _, p := range prompts {
		if p != "" {
			g.Says = append(g.Says, t.say(p))
		}
	}
	t.verbs = append(t.verbs, g)
	return t
}

// Redirect continues the call at url
func (t *TwiML) Redirect(url, method string) *TwiML {
	if method == "" {
		method = "POST"
	}
	t.verbs = append(t.verbs, twimlRedirect{Method: method, URL: url})
	return t
}

// Dial bridges the call to number
func (t *TwiML) Dial(number string) *TwiML {
	t.verbs = append(t.verbs, twimlDial{Number: number})
	return t
}

// Hangup ends the call
func (t *TwiML) Hangup() *TwiML {
	t.verbs = append(t.verbs, twimlHangup{})
	return t
}

// Len returns the number of verbs added so far
func (t *TwiML) Len() int {
	return len(t.verbs)
}

// Bytes renders the document with an XML header
func (t *TwiML) Bytes() ([]byte, error) {
	body, err := xml.Marshal(twimlResponse{Verbs: t.verbs})
	if err != nil {
		return nil, fmt.Errorf("failed to render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// String renders the document, returning an empty response on failure
func (t *TwiML) String() string {
	b, err := t.Bytes()
	if err != nil {
		return xml.Header + "<Response></Response>"
	}
	return string(b)
}
