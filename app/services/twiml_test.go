package services

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsedResponse struct {
	XMLName xml.Name `xml:"Response"`
	Says    []string `xml:"Say"`
	Gathers []struct {
		Input         string   `xml:"input,attr"`
		NumDigits     int      `xml:"numDigits,attr"`
		Action        string   `xml:"action,attr"`
		Method        string   `xml:"method,attr"`
		SpeechTimeout string   `xml:"speechTimeout,attr"`
		Language      string   `xml:"language,attr"`
		Says          []string `xml:"Say"`
	} `xml:"Gather"`
	Redirects []string   `xml:"Redirect"`
	Dials     []string   `xml:"Dial"`
	Hangups   []struct{} `xml:"Hangup"`
}

func parseTwiML(t *testing.T, doc string) parsedResponse {
	t.Helper()
	var r parsedResponse
	require.NoError(t, xml.Unmarshal([]byte(doc), &r))
	return r
}

func TestTwiMLSayAndHangup(t *testing.T) {
	doc := NewTwiML("Polly.Aditi", "en-IN").
		Say("Missing parameters.").
		Hangup().
		String()

	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Contains(t, doc, `<Say voice="Polly.Aditi" language="en-IN">Missing parameters.</Say>`)
	assert.True(t, strings.HasSuffix(doc, "<Hangup></Hangup></Response>"))

	r := parseTwiML(t, doc)
	assert.Equal(t, []string{"Missing parameters."}, r.Says)
	assert.Len(t, r.Hangups, 1)
}

func TestTwiMLGather(t *testing.T) {
	t.Run("dtmf", func(t *testing.T) {
		doc := NewTwiML("Polly.Aditi", "en-IN").
			Gather(GatherOptions{Input: "dtmf", NumDigits: 1, Action: "/api/voice/inbound?node=INBOUND_MENU"}, "Press 1").
			String()

		r := parseTwiML(t, doc)
		require.Len(t, r.Gathers, 1)
		g := r.Gathers[0]
		assert.Equal(t, "dtmf", g.Input)
		assert.Equal(t, 1, g.NumDigits)
		assert.Equal(t, "POST", g.Method)
		assert.Empty(t, g.SpeechTimeout)
		assert.Empty(t, g.Language)
		assert.Equal(t, []string{"Press 1"}, g.Says)
	})

	t.Run("speech", func(t *testing.T) {
		doc := NewTwiML("Polly.Aditi", "en-IN").
			Gather(GatherOptions{Input: "speech dtmf", Action: "/api/voice/continue?leadId=a&scriptId=b"}, "Hello", "", "Pitch").
			String()

		assert.Contains(t, doc, "leadId=a&amp;scriptId=b")
		r := parseTwiML(t, doc)
		require.Len(t, r.Gathers, 1)
		g := r.Gathers[0]
		assert.Equal(t, "speech dtmf", g.Input)
		assert.Equal(t, "auto", g.SpeechTimeout)
		assert.Equal(t, "en-IN", g.Language)
		assert.Equal(t, "/api/voice/continue?leadId=a&scriptId=b", g.Action)
		assert.Equal(t, []string{"Hello", "Pitch"}, g.Says)
	})
}

func TestTwiMLVerbOrder(t *testing.T) {
	b := NewTwiML("", "").
		Say("Connecting you.").
		Dial("+911234567890").
		Redirect("/api/voice/continue?node=AWAITING_CONFIRMATION", "")
	assert.Equal(t, 3, b.Len())

	doc := b.String()
	say := strings.Index(doc, "<Say")
	dial := strings.Index(doc, "<Dial>")
	redirect := strings.Index(doc, `<Redirect method="POST">`)
	assert.True(t, say >= 0 && say < dial && dial < redirect, doc)

	r := parseTwiML(t, doc)
	assert.Equal(t, []string{"+911234567890"}, r.Dials)
	assert.Equal(t, []string{"/api/voice/continue?node=AWAITING_CONFIRMATION"}, r.Redirects)
	assert.NotContains(t, doc, "voice=")
}

func TestTwiMLEscapesText(t *testing.T) {
	doc := NewTwiML("", "").Say(`Tom & Jerry <say>`).String()
	assert.Contains(t, doc, "Tom &amp; Jerry &lt;say&gt;")

	r := parseTwiML(t, doc)
	assert.Equal(t, []string{"Tom & Jerry <say>"}, r.Says)
}

func TestTwiMLEmpty(t *testing.T) {
	doc := NewTwiML("", "").String()
	assert.Equal(t, xml.Header+"<Response></Response>", doc)
}
