package businessflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/app/services"
	"github.com/victorycadets/admissions-agent/config"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	"github.com/victorycadets/admissions-agent/utils"
)

// Voice webhook paths. Callback URLs are relative so the provider resolves them against the current request.
const (
	VoicePathInbound   = "/api/voice/inbound"
	VoicePathOutbound  = "/api/voice/outbound"
	VoicePathObjection = "/api/voice/objection"
	VoicePathContinue  = "/api/voice/continue"
	VoicePathStatus    = "/api/voice/status"
)

// Webhook endpoint labels
const (
	EndpointInbound   = "inbound"
	EndpointOutbound  = "outbound"
	EndpointObjection = "objection"
	EndpointContinue  = "continue"
	EndpointStatus    = "status"
)

// CallSessionFlow answers the telephony provider's conversation webhooks.
// Every method returns well-formed markup; failures become spoken apologies.
type CallSessionFlow interface {
	HandleInbound(ctx context.Context, req dto.InboundVoiceRequest) *dto.VoiceReply
	HandleOutbound(ctx context.Context, req dto.OutboundVoiceRequest) *dto.VoiceReply
	HandleObjection(ctx context.Context, req dto.ObjectionVoiceRequest) *dto.VoiceReply
	HandleContinue(ctx context.Context, req dto.ContinueVoiceRequest) *dto.VoiceReply
	OfflineReply(endpoint string) *dto.VoiceReply
}

type CallSessionFlowImpl struct {
	leadRepo   repository.LeadRepository
	scriptRepo repository.AgentScriptRepository
	callRepo   repository.CallRecordRepository
	db         *gorm.DB
	engine     *DialogueEngine
	guard      DeliveryGuard
	cfg        config.VoiceConfig
	logger     *zap.Logger
}

// NewCallSessionFlow wires the controller. A nil db puts every webhook in offline mode; a nil guard applies every delivery.
func NewCallSessionFlow(
	leadRepo repository.LeadRepository,
	scriptRepo repository.AgentScriptRepository,
	callRepo repository.CallRecordRepository,
	db *gorm.DB,
	engine *DialogueEngine,
	guard DeliveryGuard,
	cfg config.VoiceConfig,
	logger *zap.Logger,
) CallSessionFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = utils.DefaultWebhookTimeout
	}
	return &CallSessionFlowImpl{
		leadRepo:   leadRepo,
		scriptRepo: scriptRepo,
		callRepo:   callRepo,
		db:         db,
		engine:     engine,
		guard:      guard,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleInbound answers a call placed to the academy. Unknown numbers become CONTACTED leads.
func (f *CallSessionFlowImpl) HandleInbound(ctx context.Context, req dto.InboundVoiceRequest) *dto.VoiceReply {
	if f.db == nil {
		return f.offline(EndpointInbound)
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.WebhookTimeout)
	defer cancel()

	lead, err := f.resolveInboundLead(ctx, req)
	if err != nil {
		return f.failed(EndpointInbound, req.CallSid, err)
	}

	node, ok := ParseNode(req.Node)
	if !ok || (node != NodeInboundMenu && node != NodeInboundCourseInfo) {
		node = NodeInboundMenu
	}
	call := CallContext{
		LeadID:       lead.UUID.String(),
		CallSid:      req.CallSid,
		CallerNumber: req.From,
		Direction:    models.CallDirectionInbound,
		Node:         node,
		Digits:       req.Digits,
	}
	return f.step(ctx, EndpointInbound, call, lead, nil)
}

func (f *CallSessionFlowImpl) resolveInboundLead(ctx context.Context, req dto.InboundVoiceRequest) (*models.Lead, error) {
	if req.LeadID != "" {
		lead, err := f.leadRepo.ByUUID(ctx, req.LeadID)
		if err != nil {
			return nil, unavailable(err)
		}
		if lead != nil {
			return lead, nil
		}
	}

	phone := req.From
	if phone == "" {
		phone = "Unknown"
	}
	lead, err := f.leadRepo.ByPhone(ctx, phone)
	if err != nil {
		return nil, unavailable(err)
	}
	if lead != nil {
		return lead, nil
	}

	lead, created, err := f.leadRepo.SaveIfPhoneAbsent(ctx, &models.Lead{
		FullName:    utils.UnknownCallerName,
		PhoneNumber: phone,
		Source:      models.LeadSourceInboundCall,
		Status:      models.LeadStatusContacted,
		TargetExam:  models.TargetExamOther,
		Tags:        []string{utils.InboundCallTag},
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if created {
		f.logger.Info("Created lead for unknown inbound caller",
			zap.String("lead_id", lead.UUID.String()),
			zap.String("call_sid", req.CallSid))
	}
	return lead, nil
}

// HandleOutbound reads the pitch of the script chosen when the call was placed
func (f *CallSessionFlowImpl) HandleOutbound(ctx context.Context, req dto.OutboundVoiceRequest) *dto.VoiceReply {
	if f.db == nil {
		return f.offline(EndpointOutbound)
	}
	if req.LeadID == "" || req.ScriptID == "" {
		voiceWebhooksTotal.WithLabelValues(EndpointOutbound, outcomeBadRequest).Inc()
		return f.sayAndHangup(http.StatusBadRequest, promptMissingParams)
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.WebhookTimeout)
	defer cancel()

	script, err := f.scriptRepo.ByUUID(ctx, req.ScriptID)
	if err != nil {
		return f.failed(EndpointOutbound, req.CallSid, unavailable(err))
	}
	if script == nil {
		voiceWebhooksTotal.WithLabelValues(EndpointOutbound, outcomeNotFound).Inc()
		return f.sayAndHangup(http.StatusNotFound, promptScriptNotFound)
	}

	lead, reply := f.requireLead(ctx, EndpointOutbound, req.CallSid, req.LeadID)
	if reply != nil {
		return reply
	}

	call := CallContext{
		LeadID:    req.LeadID,
		ScriptID:  script.UUID.String(),
		CallSid:   req.CallSid,
		Direction: models.CallDirectionOutbound,
		Node:      NodeOutboundGreetingPitch,
	}
	return f.step(ctx, EndpointOutbound, call, lead, script)
}

// HandleObjection enters the objection sub-dialogue
func (f *CallSessionFlowImpl) HandleObjection(ctx context.Context, req dto.ObjectionVoiceRequest) *dto.VoiceReply {
	if f.db == nil {
		return f.offline(EndpointObjection)
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.WebhookTimeout)
	defer cancel()

	lead, reply := f.requireLead(ctx, EndpointObjection, req.CallSid, req.LeadID)
	if reply != nil {
		return reply
	}
	script, err := f.resolveScript(ctx, req.ScriptID)
	if err != nil {
		return f.failed(EndpointObjection, req.CallSid, err)
	}

	call := CallContext{
		LeadID:    req.LeadID,
		ScriptID:  script.UUID.String(),
		CallSid:   req.CallSid,
		Direction: models.CallDirectionOutbound,
		Node:      NodeObjectionHandling,
		Attempt:   req.Attempt,
		Entering:  true,
	}
	return f.step(ctx, EndpointObjection, call, lead, script)
}

// HandleContinue classifies the caller's answer to the last question
func (f *CallSessionFlowImpl) HandleContinue(ctx context.Context, req dto.ContinueVoiceRequest) *dto.VoiceReply {
	if f.db == nil {
		return f.offline(EndpointContinue)
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.WebhookTimeout)
	defer cancel()

	lead, reply := f.requireLead(ctx, EndpointContinue, req.CallSid, req.LeadID)
	if reply != nil {
		return reply
	}
	script, err := f.resolveScript(ctx, req.ScriptID)
	if err != nil {
		return f.failed(EndpointContinue, req.CallSid, err)
	}

	node, ok := ParseNode(req.Node)
	if !ok || !(node == NodeAwaitingConfirmation || node == NodeObjectionHandling || node.IsTerminal()) {
		node = NodeAwaitingConfirmation
	}
	call := CallContext{
		LeadID:     req.LeadID,
		ScriptID:   script.UUID.String(),
		CallSid:    req.CallSid,
		Direction:  models.CallDirectionOutbound,
		Node:       node,
		Transcript: req.SpeechResult,
		Digits:     req.Digits,
		Attempt:    req.Attempt,
	}
	return f.step(ctx, EndpointContinue, call, lead, script)
}

// requireLead loads the lead or returns the spoken reply that ends the call
func (f *CallSessionFlowImpl) requireLead(ctx context.Context, endpoint, callSid, leadID string) (*models.Lead, *dto.VoiceReply) {
	if leadID == "" {
		voiceWebhooksTotal.WithLabelValues(endpoint, outcomeMissingLead).Inc()
		return nil, f.sayAndHangup(http.StatusOK, promptMissingLead)
	}
	lead, err := f.leadRepo.ByUUID(ctx, leadID)
	if err != nil {
		return nil, f.failed(endpoint, callSid, unavailable(err))
	}
	if lead == nil {
		voiceWebhooksTotal.WithLabelValues(endpoint, outcomeUnknownLead).Inc()
		f.logger.Warn("Voice webhook for unknown lead",
			zap.String("endpoint", endpoint),
			zap.String("lead_id", leadID),
			zap.String("call_sid", callSid))
		return nil, f.sayAndHangup(http.StatusOK, promptUnknownLead)
	}
	return lead, nil
}

// resolveScript loads the script carried by the call, falling back to the default script
func (f *CallSessionFlowImpl) resolveScript(ctx context.Context, scriptID string) (*models.AgentScript, error) {
	if scriptID != "" {
		script, err := f.scriptRepo.ByUUID(ctx, scriptID)
		if err != nil {
			return nil, unavailable(err)
		}
		if script != nil {
			return script, nil
		}
		f.logger.Warn("Unknown script on continuation webhook, using default", zap.String("script_id", scriptID))
	}
	script, err := f.scriptRepo.EnsureDefault(ctx, models.DefaultAgentScript())
	if err != nil {
		return nil, unavailable(err)
	}
	return script, nil
}

// step runs the engine, applies its mutation and renders the reply
func (f *CallSessionFlowImpl) step(ctx context.Context, endpoint string, call CallContext, lead *models.Lead, script *models.AgentScript) *dto.VoiceReply {
	d := f.engine.Decide(call, lead, script)
	dialogueTransitionsTotal.WithLabelValues(string(d.From), string(d.Trigger), string(d.Next)).Inc()

	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.String("call_sid", call.CallSid),
		zap.String("lead_id", call.LeadID),
		zap.String("from", string(d.From)),
		zap.String("trigger", string(d.Trigger)),
		zap.String("next", string(d.Next)),
	}
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if d.Fallback {
		voiceWebhooksTotal.WithLabelValues(endpoint, outcomeFallback).Inc()
		f.logger.Warn("No dialogue transition matched, ending call", fields...)
	} else {
		f.logger.Info("Dialogue transition", fields...)
	}

	if err := f.apply(ctx, call, lead, d); err != nil {
		return f.failed(endpoint, call.CallSid, err)
	}

	if !d.Fallback {
		voiceWebhooksTotal.WithLabelValues(endpoint, outcomeOK).Inc()
	}
	return f.render(call, d)
}

// apply writes the decision's mutation once per delivery
func (f *CallSessionFlowImpl) apply(ctx context.Context, call CallContext, lead *models.Lead, d Decision) error {
	if !d.HasMutation() {
		return nil
	}

	claimed := ""
	if f.guard != nil && call.CallSid != "" {
		key := deliveryKey(call, d)
		first, err := f.guard.FirstDelivery(ctx, key)
		if err != nil {
			f.logger.Warn("Delivery guard unavailable, applying mutation", zap.Error(err))
		}
		if !first {
			voiceDuplicateDeliveriesTotal.Inc()
			f.logger.Info("Skipping mutation of redelivered webhook",
				zap.String("call_sid", call.CallSid),
				zap.String("from", string(d.From)),
				zap.String("trigger", string(d.Trigger)))
			return nil
		}
		if err == nil {
			claimed = key
		}
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if d.Lead != nil && lead != nil {
			if d.Lead.Status != nil {
				if !lead.Status.CanTransitionTo(*d.Lead.Status) {
					f.logger.Warn("Applying backward lead status transition",
						zap.String("lead_id", lead.UUID.String()),
						zap.String("from", string(lead.Status)),
						zap.String("to", string(*d.Lead.Status)))
				}
				if err := f.leadRepo.UpdateStatus(txCtx, lead.ID, *d.Lead.Status); err != nil {
					return err
				}
			}
			if err := f.leadRepo.AppendNote(txCtx, lead.ID, d.Lead.Note); err != nil {
				return err
			}
		}

		if d.Ledger != nil && call.CallSid != "" {
			outcome := repository.CallOutcome{
				CallSid:    call.CallSid,
				Direction:  call.Direction,
				Transcript: d.Ledger.Transcript,
				Note:       d.Ledger.Note,
			}
			if lead != nil {
				outcome.LeadID = &lead.ID
			}
			if err := f.callRepo.UpsertOutcome(txCtx, outcome); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && claimed != "" {
		// the redelivery must be able to apply what this attempt could not
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		rerr := f.guard.Release(rctx, claimed)
		cancel()
		if rerr != nil {
			f.logger.Error("Failed to release delivery key", zap.String("call_sid", call.CallSid), zap.Error(rerr))
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			f.logger.Warn("Lead vanished before mutation", zap.String("lead_id", call.LeadID))
			return nil
		}
		return unavailable(err)
	}
	return nil
}

// render turns engine steps into TwiML
func (f *CallSessionFlowImpl) render(call CallContext, d Decision) *dto.VoiceReply {
	doc := services.NewTwiML(f.cfg.SpeechVoice, f.cfg.SpeechLanguage)
	for _, s := range d.Steps {
		switch s.Kind {
		case StepSay:
			doc.Say(s.Text)
		case StepGather:
			doc.Gather(services.GatherOptions{
				Input:     string(s.Input),
				NumDigits: s.NumDigits,
				Action:    callbackURL(answerPath(s.Target), call, s.Target, s.Attempt),
				Method:    http.MethodPost,
			}, s.Prompts...)
		case StepRedirect:
			path := answerPath(s.Target)
			if s.Entry {
				path = entryPath(s.Target)
			}
			doc.Redirect(callbackURL(path, call, s.Target, s.Attempt), http.MethodPost)
		case StepDial:
			doc.Dial(s.Number)
		case StepHangup:
			doc.Hangup()
		}
	}
	return &dto.VoiceReply{StatusCode: http.StatusOK, Body: doc.String()}
}

// answerPath is where a node's gathered input is posted
func answerPath(n Node) string {
	switch n {
	case NodeInboundMenu, NodeInboundCourseInfo:
		return VoicePathInbound
	default:
		return VoicePathContinue
	}
}

// entryPath is the webhook that opens a node
func entryPath(n Node) string {
	switch n {
	case NodeObjectionHandling:
		return VoicePathObjection
	case NodeOutboundGreetingPitch:
		return VoicePathOutbound
	default:
		return answerPath(n)
	}
}

// callbackURL carries the call context to the next webhook
func callbackURL(path string, call CallContext, node Node, attempt int) string {
	q := url.Values{}
	if call.LeadID != "" {
		q.Set("leadId", call.LeadID)
	}
	if call.ScriptID != "" {
		q.Set("scriptId", call.ScriptID)
	}
	q.Set("node", string(node))
	if attempt > 0 {
		q.Set("attempt", strconv.Itoa(attempt))
	}
	return path + "?" + q.Encode()
}

func (f *CallSessionFlowImpl) sayAndHangup(status int, text string) *dto.VoiceReply {
	doc := services.NewTwiML(f.cfg.SpeechVoice, f.cfg.SpeechLanguage).Say(text).Hangup()
	return &dto.VoiceReply{StatusCode: status, Body: doc.String()}
}

// failed logs err and ends the call with the offline apology
func (f *CallSessionFlowImpl) failed(endpoint, callSid string, err error) *dto.VoiceReply {
	f.logger.Error("Voice webhook failed",
		zap.String("endpoint", endpoint),
		zap.String("call_sid", callSid),
		zap.Error(err))
	return f.offline(endpoint)
}

func (f *CallSessionFlowImpl) offline(endpoint string) *dto.VoiceReply {
	voiceWebhooksTotal.WithLabelValues(endpoint, outcomeOffline).Inc()
	return f.OfflineReply(endpoint)
}

// OfflineReply is the static apology used when the backing store cannot serve a webhook
func (f *CallSessionFlowImpl) OfflineReply(endpoint string) *dto.VoiceReply {
	text := promptOffline
	if endpoint == EndpointInbound {
		text = promptInboundOffline
	}
	return f.sayAndHangup(http.StatusOK, text)
}
