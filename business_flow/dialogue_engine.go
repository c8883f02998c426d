package businessflow

import (
	"fmt"

	"github.com/victorycadets/admissions-agent/models"
)

// Node is a state of the dialogue state machine
type Node string

const (
	NodeInboundMenu           Node = "INBOUND_MENU"
	NodeInboundCourseInfo     Node = "INBOUND_COURSE_INFO"
	NodeOutboundGreetingPitch Node = "OUTBOUND_GREETING_PITCH"
	NodeAwaitingConfirmation  Node = "AWAITING_CONFIRMATION"
	NodeObjectionHandling     Node = "OBJECTION_HANDLING"
	NodeConfirmedEnd          Node = "CONFIRMED_END"
	NodeDeclinedEnd           Node = "DECLINED_END"
	NodeFollowUpEnd           Node = "FOLLOW_UP_END"
	NodeHumanHandoff          Node = "HUMAN_HANDOFF"
)

var allNodes = []Node{
	NodeInboundMenu, NodeInboundCourseInfo, NodeOutboundGreetingPitch, NodeAwaitingConfirmation,
	NodeObjectionHandling, NodeConfirmedEnd, NodeDeclinedEnd, NodeFollowUpEnd, NodeHumanHandoff,
}

// ParseNode converts a node carried in a callback URL
func ParseNode(raw string) (Node, bool) {
	for _, n := range allNodes {
		if string(n) == raw {
			return n, true
		}
	}
	return "", false
}

// IsTerminal reports whether the node ends lead-state progress for the call
func (n Node) IsTerminal() bool {
	switch n {
	case NodeConfirmedEnd, NodeDeclinedEnd, NodeFollowUpEnd, NodeHumanHandoff:
		return true
	}
	return false
}

// Trigger is the event that moves the dialogue out of a node
type Trigger string

const (
	TriggerEnter            Trigger = "ENTER"
	TriggerDigit1           Trigger = "DIGIT_1"
	TriggerDigit2           Trigger = "DIGIT_2"
	TriggerDigitOther       Trigger = "DIGIT_OTHER"
	TriggerAffirm           Trigger = "AFFIRM"
	TriggerDecline          Trigger = "DECLINE"
	TriggerUnclear          Trigger = "UNCLEAR"
	TriggerRetriesExhausted Trigger = "RETRIES_EXHAUSTED"
)

// CallContext is everything known about a call at one webhook.
// It is rebuilt from the parameters of each callback.
type CallContext struct {
	LeadID       string
	ScriptID     string
	CallSid      string
	CallerNumber string
	Direction    models.CallDirection
	Node         Node
	Transcript   string
	Digits       string
	Attempt      int
	// Entering is set when the webhook is the node's own entry point rather than a gather result
	Entering bool
}

// StepKind names a markup instruction
type StepKind string

const (
	StepSay      StepKind = "SAY"
	StepGather   StepKind = "GATHER"
	StepRedirect StepKind = "REDIRECT"
	StepDial     StepKind = "DIAL"
	StepHangup   StepKind = "HANGUP"
)

// GatherInput selects what a gather listens for
type GatherInput string

const (
	GatherDTMF       GatherInput = "dtmf"
	GatherSpeechDTMF GatherInput = "speech dtmf"
)

// Step is one provider-neutral markup instruction
type Step struct {
	Kind      StepKind
	Text      string
	Prompts   []string
	Input     GatherInput
	NumDigits int
	Target    Node
	Attempt   int
	Number    string
	// Entry sends a redirect to the target node's entry point instead of its answer handler
	Entry bool
}

// LeadMutation is the change to apply to the lead
type LeadMutation struct {
	Status *models.LeadStatus
	Note   string
}

// LedgerMutation is the change to apply to the call record
type LedgerMutation struct {
	Transcript *string
	Note       string
}

// Decision is the pure result of one dialogue step
type Decision struct {
	From    Node
	Trigger Trigger
	Next    Node
	Steps   []Step
	Lead    *LeadMutation
	Ledger  *LedgerMutation
	// Fallback is set when no transition matched and a goodbye was produced instead
	Fallback bool
}

// HasMutation reports whether applying the decision writes anything
func (d Decision) HasMutation() bool {
	return d.Lead != nil || d.Ledger != nil
}

// EngineConfig holds the injected settings the dialogue needs
type EngineConfig struct {
	RoutingNumber      string
	MaxObjectionRounds int
}

const defaultMaxObjectionRounds = 2

type transitionKey struct {
	from    Node
	trigger Trigger
}

type engineInput struct {
	call   CallContext
	lead   *models.Lead
	script *models.AgentScript
	cfg    EngineConfig
}

type transition struct {
	next   Node
	steps  func(in engineInput) []Step
	lead   func(in engineInput) *LeadMutation
	ledger func(in engineInput) *LedgerMutation
}

// DialogueEngine decides the next prompt and state mutation for a call.
// It performs no I/O.
type DialogueEngine struct {
	cfg        EngineConfig
	classifier *IntentClassifier
	table      map[transitionKey]transition
}

func NewDialogueEngine(cfg EngineConfig, classifier *IntentClassifier) *DialogueEngine {
	if cfg.MaxObjectionRounds <= 0 {
		cfg.MaxObjectionRounds = defaultMaxObjectionRounds
	}
	return &DialogueEngine{
		cfg:        cfg,
		classifier: classifier,
		table:      transitionTable(),
	}
}

// Resolve returns the node the webhook starts from and the trigger it carries.
// An unclear answer at AWAITING_CONFIRMATION with Attempt >= MaxObjectionRounds resolves to
// RETRIES_EXHAUSTED instead of UNCLEAR, so the call ends at FOLLOW_UP_END rather than taking the
// (AWAITING_CONFIRMATION, UNCLEAR) row back into objection handling.
func (e *DialogueEngine) Resolve(call CallContext) (Node, Trigger) {
	switch call.Node {
	case NodeInboundMenu, NodeInboundCourseInfo:
		switch call.Digits {
		case "":
			return NodeInboundMenu, TriggerEnter
		case "1":
			return call.Node, TriggerDigit1
		case "2":
			return call.Node, TriggerDigit2
		default:
			return call.Node, TriggerDigitOther
		}
	case NodeOutboundGreetingPitch:
		return call.Node, TriggerEnter
	case NodeAwaitingConfirmation, NodeObjectionHandling:
		if call.Entering {
			return call.Node, TriggerEnter
		}
		switch e.classifier.Classify(call.Transcript) {
		case IntentAffirm:
			return call.Node, TriggerAffirm
		case IntentDecline:
			return call.Node, TriggerDecline
		}
		if call.Node == NodeAwaitingConfirmation && call.Attempt >= e.cfg.MaxObjectionRounds {
			return call.Node, TriggerRetriesExhausted
		}
		return call.Node, TriggerUnclear
	}
	return call.Node, TriggerEnter
}

// Decide runs one step of the state machine
func (e *DialogueEngine) Decide(call CallContext, lead *models.Lead, script *models.AgentScript) Decision {
	from, trigger := e.Resolve(call)
	if script == nil {
		script = models.DefaultAgentScript()
	}
	in := engineInput{call: call, lead: lead, script: script, cfg: e.cfg}

	t, ok := e.table[transitionKey{from: from, trigger: trigger}]
	if !ok {
		return Decision{
			From:     from,
			Trigger:  trigger,
			Next:     from,
			Steps:    []Step{say(promptTerminalGoodbye), hangup()},
			Fallback: !from.IsTerminal(),
		}
	}

	d := Decision{
		From:    from,
		Trigger: trigger,
		Next:    t.next,
		Steps:   t.steps(in),
	}
	if t.lead != nil {
		d.Lead = t.lead(in)
	}
	if t.ledger != nil {
		d.Ledger = t.ledger(in)
	}
	return d
}

func transitionTable() map[transitionKey]transition {
	table := map[transitionKey]transition{
		{NodeInboundMenu, TriggerEnter}: {
			next: NodeInboundMenu,
			steps: func(in engineInput) []Step {
				steps := []Step{
					say(promptInboundGreeting),
					gather(GatherDTMF, 1, NodeInboundMenu, 0, promptInboundMenu),
				}
				return append(steps, handoff(in)...)
			},
		},
		{NodeOutboundGreetingPitch, TriggerEnter}: {
			next: NodeAwaitingConfirmation,
			steps: func(in engineInput) []Step {
				return []Step{
					gather(GatherSpeechDTMF, 0, NodeAwaitingConfirmation, 0,
						in.script.Greeting, in.script.Pitch, in.script.Closing),
					redirect(NodeAwaitingConfirmation, 0),
				}
			},
		},
		{NodeAwaitingConfirmation, TriggerUnclear}: {
			next: NodeObjectionHandling,
			steps: func(in engineInput) []Step {
				return []Step{
					say(in.script.ObjectionHandling),
					enter(NodeObjectionHandling, in.call.Attempt),
				}
			},
		},
		{NodeAwaitingConfirmation, TriggerRetriesExhausted}: {
			next: NodeFollowUpEnd,
			steps: func(in engineInput) []Step {
				return []Step{say(promptFollowUpClose), hangup()}
			},
			lead: func(in engineInput) *LeadMutation {
				m := &LeadMutation{Note: fmt.Sprintf(noteFollowUpFormat, in.call.Attempt)}
				if in.lead != nil && in.lead.Status != models.LeadStatusFollowUp &&
					in.lead.Status.CanTransitionTo(models.LeadStatusFollowUp) {
					m.Status = statusPtr(models.LeadStatusFollowUp)
				}
				return m
			},
			ledger: func(in engineInput) *LedgerMutation {
				return &LedgerMutation{
					Transcript: transcriptPtr(in.call.Transcript),
					Note:       fmt.Sprintf(noteFollowUpFormat, in.call.Attempt),
				}
			},
		},
		{NodeObjectionHandling, TriggerEnter}: {
			next: NodeObjectionHandling,
			steps: func(in engineInput) []Step {
				return []Step{
					gather(GatherSpeechDTMF, 0, NodeObjectionHandling, in.call.Attempt, promptObjectionReask),
					redirect(NodeObjectionHandling, in.call.Attempt),
				}
			},
		},
		{NodeObjectionHandling, TriggerUnclear}: {
			next: NodeAwaitingConfirmation,
			steps: func(in engineInput) []Step {
				return []Step{
					gather(GatherSpeechDTMF, 0, NodeAwaitingConfirmation, in.call.Attempt+1, promptRecapReask),
					redirect(NodeAwaitingConfirmation, in.call.Attempt+1),
				}
			},
		},
	}

	// Both question nodes close the same way on a clear answer
	for _, from := range []Node{NodeAwaitingConfirmation, NodeObjectionHandling} {
		table[transitionKey{from, TriggerAffirm}] = confirmTransition
		table[transitionKey{from, TriggerDecline}] = declineTransition
	}

	// The course-info menu answers keys like the main menu
	for _, from := range []Node{NodeInboundMenu, NodeInboundCourseInfo} {
		table[transitionKey{from, TriggerDigit1}] = inboundDemoTransition
		table[transitionKey{from, TriggerDigit2}] = courseInfoTransition
		table[transitionKey{from, TriggerDigitOther}] = handoffTransition
	}

	return table
}

var confirmTransition = transition{
	next: NodeConfirmedEnd,
	steps: func(in engineInput) []Step {
		return []Step{say(promptConfirmed), say(promptSignOff), hangup()}
	},
	lead: func(in engineInput) *LeadMutation {
		return &LeadMutation{
			Status: statusPtr(models.LeadStatusDemoScheduled),
			Note:   fmt.Sprintf(noteConfirmedFormat, in.call.Transcript),
		}
	},
	ledger: func(in engineInput) *LedgerMutation {
		return &LedgerMutation{
			Transcript: transcriptPtr(in.call.Transcript),
			Note:       fmt.Sprintf(noteConfirmedFormat, in.call.Transcript),
		}
	},
}

var declineTransition = transition{
	next: NodeDeclinedEnd,
	steps: func(in engineInput) []Step {
		return []Step{say(promptDeclined), hangup()}
	},
	lead: func(in engineInput) *LeadMutation {
		return &LeadMutation{
			Status: statusPtr(models.LeadStatusLost),
			Note:   fmt.Sprintf(noteDeclinedFormat, in.call.Transcript),
		}
	},
	ledger: func(in engineInput) *LedgerMutation {
		return &LedgerMutation{
			Transcript: transcriptPtr(in.call.Transcript),
			Note:       fmt.Sprintf(noteDeclinedFormat, in.call.Transcript),
		}
	},
}

var inboundDemoTransition = transition{
	next: NodeConfirmedEnd,
	steps: func(in engineInput) []Step {
		return []Step{say(promptDemoRequested), hangup()}
	},
	lead: func(in engineInput) *LeadMutation {
		return &LeadMutation{Status: statusPtr(models.LeadStatusDemoScheduled)}
	},
	ledger: func(in engineInput) *LedgerMutation {
		return &LedgerMutation{Note: noteInboundDemo}
	},
}

var courseInfoTransition = transition{
	next: NodeInboundCourseInfo,
	steps: func(in engineInput) []Step {
		steps := []Step{gather(GatherDTMF, 1, NodeInboundCourseInfo, 0, promptCourseInfo, promptCourseInfoKeys)}
		return append(steps, handoff(in)...)
	},
}

var handoffTransition = transition{
	next:  NodeHumanHandoff,
	steps: handoff,
	ledger: func(in engineInput) *LedgerMutation {
		return &LedgerMutation{Note: noteInboundHandoff}
	},
}

// handoff bridges the caller to the routing number, falling back to the caller's own number
func handoff(in engineInput) []Step {
	number := in.cfg.RoutingNumber
	if number == "" {
		number = in.call.CallerNumber
	}
	if number == "" {
		return []Step{say(promptHandoff), say(promptTerminalGoodbye), hangup()}
	}
	return []Step{say(promptHandoff), {Kind: StepDial, Number: number}}
}

func say(text string) Step {
	return Step{Kind: StepSay, Text: text}
}

func gather(input GatherInput, numDigits int, target Node, attempt int, prompts ...string) Step {
	return Step{Kind: StepGather, Input: input, NumDigits: numDigits, Target: target, Attempt: attempt, Prompts: prompts}
}

func redirect(target Node, attempt int) Step {
	return Step{Kind: StepRedirect, Target: target, Attempt: attempt}
}

func enter(target Node, attempt int) Step {
	return Step{Kind: StepRedirect, Target: target, Attempt: attempt, Entry: true}
}

func hangup() Step {
	return Step{Kind: StepHangup}
}

func statusPtr(s models.LeadStatus) *models.LeadStatus {
	return &s
}

func transcriptPtr(t string) *string {
	if t == "" {
		return nil
	}
	return &t
}
