package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voicehive/voicehive/internal/intent"
	"github.com/voicehive/voicehive/internal/slots"
)

// Action tags attached to flow decisions. The Session Manager and LLM
// Coordinator branch on these.
const (
	ActionInitiateTransfer  = "initiate_transfer"
	ActionEndCallGracefully = "end_call_gracefully"
	ActionCollectComplaint  = "collect_complaint"
	ActionAskClarification  = "ask_clarification"
	ActionAskSlot           = "ask_slot"
	ActionConfirmSummary    = "confirm_summary"
	ActionExecuteTask       = "execute_task"
	ActionOfferUpsell       = "offer_upsell"
	ActionAnythingElse      = "anything_else"
	ActionProvideInfo       = "provide_info"
)

// DefaultBudget is the hard wall-clock cap for one flow decision.
const DefaultBudget = 50 * time.Millisecond

// Decision is the controller's output for one user turn.
type Decision struct {
	// NextState is the conversation state to move to. Equal to the current
	// state when the turn should not transition.
	NextState State `json:"next_state"`

	// Via lists intermediate states passed through when the decision spans
	// more than one edge of the state graph (e.g. a caller who supplies every
	// slot in their first sentence hops greeting → slot_filling →
	// confirmation in a single turn). Usually empty.
	Via []State `json:"via,omitempty"`

	// Actions is the ordered list of action tags to perform.
	Actions []string `json:"actions"`

	// RequiredSlots lists required slot names still outstanding.
	RequiredSlots []string `json:"required_slots,omitempty"`

	// Responses holds one or more suggested natural-language responses.
	Responses []string `json:"responses"`

	// Confidence is the decision confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Reasoning describes which branch fired. Informational only.
	Reasoning string `json:"reasoning"`
}

// Input carries everything the controller needs for one decision.
type Input struct {
	// Current is the conversation state before the turn.
	Current State

	// Detection is the multi-intent result for the utterance.
	Detection intent.Result

	// Utterance is the raw user text, used for confirmation parsing.
	Utterance string

	// Filled maps slot name to value for every slot filled so far
	// (active and completed).
	Filled map[string]slots.Slot

	// PendingIntent is the task intent being slot-filled, when the current
	// state is slot_filling or confirmation. Falls back to the detection's
	// primary intent when empty.
	PendingIntent intent.Intent

	// UpsellAvailable reports whether the session has recorded an upsell
	// opportunity that has not been offered yet.
	UpsellAvailable bool

	// ClarificationAttempts counts consecutive turns spent in clarification.
	ClarificationAttempts int
}

// affirmative and negative are the fixed confirmation token sets
// (English, German, Spanish, French).
var (
	affirmativeTokens = []string{
		"yes", "yeah", "yep", "correct", "right", "sure", "exactly", "ok", "okay", "perfect",
		"ja", "genau", "richtig", "stimmt", "sí", "si", "claro", "oui", "d'accord",
	}
	negativeTokens = []string{
		"no", "nope", "wrong", "incorrect", "not right", "change",
		"nein", "falsch", "non", "pas",
	}
)

// maxClarificationAttempts is how many consecutive clarification turns are
// tolerated before escalating to a human.
const maxClarificationAttempts = 2

// Controller computes flow decisions. Stateless and safe for concurrent use.
type Controller struct {
	budget time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithBudget overrides the decision time cap. The default is 50 ms.
func WithBudget(d time.Duration) Option {
	return func(c *Controller) {
		c.budget = d
	}
}

// NewController creates a flow controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{budget: DefaultBudget}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Decide computes the next conversation state for one user turn. Exactly one
// decision is produced per call; the returned state is always reachable from
// in.Current (or equal to it). Decide does not mutate its input.
func (c *Controller) Decide(ctx context.Context, in Input) (Decision, error) {
	_, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	if !Valid(in.Current) {
		return Decision{}, fmt.Errorf("flow: unknown state %q", in.Current)
	}
	if Terminal(in.Current) {
		return Decision{}, fmt.Errorf("flow: state %q is terminal", in.Current)
	}

	primary := in.Detection.PrimaryIntent()

	// Rule 1: explicit transfer requests always win.
	if primary == intent.TransferToOperator || primary == intent.FallbackToHuman {
		return c.to(in, StateEscalation, Decision{
			Actions:    []string{ActionInitiateTransfer},
			Responses:  []string{"Of course, let me connect you with a member of our team. One moment, please."},
			Confidence: confidenceOf(in, 0.9),
			Reasoning:  "transfer intent detected; escalating to operator",
		}, StateClarification)
	}

	// Rule 2: goodbye.
	if primary == intent.EndCall {
		return c.to(in, StateClosing, Decision{
			Actions:    []string{ActionEndCallGracefully},
			Responses:  []string{"Thank you for calling. Have a wonderful day, and we hope to welcome you soon!"},
			Confidence: confidenceOf(in, 0.9),
			Reasoning:  "end_call intent detected; closing gracefully",
		})
	}

	// Rule 3: complaints route to problem solving and need the details slot.
	if primary == intent.ComplaintFeedback {
		dec := Decision{
			Actions:    []string{ActionCollectComplaint},
			Responses:  []string{"I'm very sorry to hear that. Could you tell me exactly what happened so I can help?"},
			Confidence: confidenceOf(in, 0.85),
			Reasoning:  "complaint intent detected; moving to problem solving",
		}
		if _, ok := in.Filled["complaint_details"]; !ok {
			dec.RequiredSlots = []string{"complaint_details"}
		}
		return c.to(in, StateProblemSolving, dec)
	}

	// Rule 4: ambiguity or low confidence demands clarification.
	if in.Detection.Ambiguous || in.Detection.RequiresClarification {
		if in.Current == StateClarification && in.ClarificationAttempts >= maxClarificationAttempts {
			return c.to(in, StateEscalation, Decision{
				Actions:    []string{ActionInitiateTransfer},
				Responses:  []string{"I'm having trouble understanding. Let me connect you with a colleague who can help."},
				Confidence: 0.7,
				Reasoning:  "repeated clarification failures; escalating",
			})
		}
		msg := in.Detection.Clarification
		if msg == "" {
			msg = "I'm sorry, could you rephrase that?"
		}
		return c.to(in, StateClarification, Decision{
			Actions:    []string{ActionAskClarification},
			Responses:  []string{msg},
			Confidence: 0.6,
			Reasoning:  "detection ambiguous or below confidence floor; asking for clarification",
		})
	}

	// Rule 5: per-state handling.
	return c.decideForState(in, primary)
}

func (c *Controller) decideForState(in Input, primary intent.Intent) (Decision, error) {
	switch in.Current {
	case StateGreeting, StateInfoGathering, StateClarification, StateUpselling:
		return c.routeTaskIntent(in, primary)

	case StateSlotFilling:
		return c.decideSlotFilling(in, c.pendingIntent(in, primary))

	case StateConfirmation:
		return c.decideConfirmation(in)

	case StateExecution:
		return c.decideExecution(in)

	case StateProblemSolving:
		if _, ok := in.Filled["complaint_details"]; ok {
			return c.to(in, StateExecution, Decision{
				Actions:    []string{ActionExecuteTask},
				Responses:  []string{"Thank you for explaining. I'm logging this right away and we will make it right."},
				Confidence: 0.8,
				Reasoning:  "complaint details collected; executing complaint handling",
			})
		}
		return Decision{
			NextState:     in.Current,
			Actions:       []string{ActionCollectComplaint},
			RequiredSlots: []string{"complaint_details"},
			Responses:     []string{slots.QuestionFor("complaint_details")},
			Confidence:    0.7,
			Reasoning:     "complaint details still missing; staying in problem solving",
		}, nil
	}

	return Decision{}, fmt.Errorf("flow: unhandled state %q", in.Current)
}

// routeTaskIntent moves an open-ended state towards the right lane for the
// detected task intent.
func (c *Controller) routeTaskIntent(in Input, primary intent.Intent) (Decision, error) {
	if _, hasSlots := SlotsFor(primary); hasSlots {
		return c.decideSlotFilling(in, primary)
	}

	switch primary {
	case intent.HotelInformation, intent.GeneralQuestion, intent.RequestInfo, intent.PaymentInquiry:
		next := StateInfoGathering
		if in.Current == StateUpselling {
			// Upselling has no edge to information gathering; answer inline
			// and continue towards execution.
			next = StateExecution
		}
		return c.to(in, next, Decision{
			Actions:    []string{ActionProvideInfo},
			Responses:  []string{"Happy to help with that."},
			Confidence: confidenceOf(in, 0.75),
			Reasoning:  fmt.Sprintf("informational intent %q; gathering information", primary),
		})

	case intent.Greeting:
		return Decision{
			NextState:  in.Current,
			Actions:    []string{ActionProvideInfo},
			Responses:  []string{"Hello! How may I help you today?"},
			Confidence: confidenceOf(in, 0.7),
			Reasoning:  "greeting intent; inviting the caller to state their request",
		}, nil
	}

	return c.to(in, StateInfoGathering, Decision{
		Actions:    []string{ActionProvideInfo},
		Responses:  []string{"Could you tell me a little more about what you need?"},
		Confidence: 0.6,
		Reasoning:  fmt.Sprintf("intent %q takes no slots; gathering information", primary),
	})
}

// decideSlotFilling asks for the first missing required slot or, once all
// required slots are present, moves to confirmation with a summary.
func (c *Controller) decideSlotFilling(in Input, task intent.Intent) (Decision, error) {
	req, ok := SlotsFor(task)
	if !ok {
		return c.routeTaskIntent(in, task)
	}

	var missing []string
	for _, name := range req.Required {
		if _, filled := in.Filled[name]; !filled {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return c.to(in, StateConfirmation, Decision{
			Actions:    []string{ActionConfirmSummary},
			Responses:  []string{summarise(task, req, in.Filled)},
			Confidence: confidenceOf(in, 0.85),
			Reasoning:  fmt.Sprintf("all required slots for %q filled; confirming", task),
		}, StateSlotFilling)
	}

	return c.to(in, StateSlotFilling, Decision{
		Actions:       []string{ActionAskSlot},
		RequiredSlots: missing,
		Responses:     []string{slots.QuestionFor(missing[0])},
		Confidence:    confidenceOf(in, 0.8),
		Reasoning:     fmt.Sprintf("slot filling for %q; %d required slots missing, asking %q", task, len(missing), missing[0]),
	})
}

// decideConfirmation parses the caller's yes/no against the fixed token sets.
func (c *Controller) decideConfirmation(in Input) (Decision, error) {
	switch parseConfirmation(in.Utterance) {
	case confirmYes:
		return c.to(in, StateExecution, Decision{
			Actions:    []string{ActionExecuteTask},
			Responses:  []string{"Perfect, one moment while I take care of that."},
			Confidence: 0.9,
			Reasoning:  "caller confirmed the summary; executing",
		})
	case confirmNo:
		return c.to(in, StateSlotFilling, Decision{
			Actions:    []string{ActionAskSlot},
			Responses:  []string{"No problem — what would you like to change?"},
			Confidence: 0.85,
			Reasoning:  "caller rejected the summary; returning to slot filling",
		})
	}
	return c.to(in, StateClarification, Decision{
		Actions:    []string{ActionAskClarification},
		Responses:  []string{"Sorry, was that a yes or a no?"},
		Confidence: 0.6,
		Reasoning:  "confirmation reply unclear; asking again",
	})
}

// decideExecution moves on after a task: offer an upsell when one is
// recorded, otherwise wrap up.
func (c *Controller) decideExecution(in Input) (Decision, error) {
	if in.UpsellAvailable {
		return c.to(in, StateUpselling, Decision{
			Actions:    []string{ActionOfferUpsell},
			Responses:  []string{"Before we finish — may I offer you a small upgrade for your stay?"},
			Confidence: 0.8,
			Reasoning:  "upsell opportunity recorded on the session; offering",
		})
	}
	return c.to(in, StateClosing, Decision{
		Actions:    []string{ActionAnythingElse},
		Responses:  []string{"Is there anything else I can help you with?"},
		Confidence: 0.8,
		Reasoning:  "execution finished with no upsell; closing",
	})
}

// pendingIntent resolves which task intent is being slot-filled.
func (c *Controller) pendingIntent(in Input, primary intent.Intent) intent.Intent {
	if _, ok := SlotsFor(primary); ok {
		return primary
	}
	if in.PendingIntent != "" {
		return in.PendingIntent
	}
	return primary
}

// to finalises a decision towards next. A single-edge transition is used when
// one exists. Otherwise the intermediate states walked through are recorded in
// Via: a preferred intermediate is tried first (e.g. slot_filling when a caller
// supplies every slot in the greeting), then the shortest legal path through
// the graph. Unreachable targets are an internal error.
func (c *Controller) to(in Input, next State, dec Decision, prefer ...State) (Decision, error) {
	if CanTransition(in.Current, next) {
		dec.NextState = next
		return dec, nil
	}
	for _, mid := range prefer {
		if mid != in.Current && CanTransition(in.Current, mid) && CanTransition(mid, next) {
			dec.NextState = next
			dec.Via = []State{mid}
			return dec, nil
		}
	}
	via, ok := shortestVia(in.Current, next)
	if !ok {
		return Decision{}, fmt.Errorf("flow: no path %s → %s", in.Current, next)
	}
	dec.NextState = next
	dec.Via = via
	return dec, nil
}

// Route returns the intermediate states to walk through when moving from
// from to to. Empty with ok=true for direct edges; ok=false when to is
// unreachable. Used by callers that force a transition outside a decision,
// such as DTMF operator requests.
func Route(from, to State) ([]State, bool) {
	if CanTransition(from, to) {
		return nil, true
	}
	return shortestVia(from, to)
}

// shortestVia finds the intermediate states on the shortest path from from to
// to, excluding both endpoints. Breadth-first over the adjacency set.
func shortestVia(from, to State) ([]State, bool) {
	prev := map[State]State{from: from}
	queue := []State{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range transitions[cur] {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			if n == to {
				var via []State
				for p := cur; p != from; p = prev[p] {
					via = append([]State{p}, via...)
				}
				return via, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// confidenceOf derives a decision confidence from the detection's primary
// intent, floored at base so weak detections do not zero out rule-based
// branches.
func confidenceOf(in Input, base float64) float64 {
	if in.Detection.Primary != nil && in.Detection.Primary.Confidence > base {
		return in.Detection.Primary.Confidence
	}
	return base
}

type confirmResult int

const (
	confirmUnclear confirmResult = iota
	confirmYes
	confirmNo
)

// parseConfirmation classifies an utterance against the affirmative and
// negative token sets. Negatives win when both appear ("no, not the suite").
// Punctuation is treated as a token boundary so "yes!" and "nein." count.
func parseConfirmation(utterance string) confirmResult {
	lower := strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '!', '?', ';', ':':
			return ' '
		}
		return r
	}, strings.ToLower(utterance))
	lower = " " + lower + " "
	for _, tok := range negativeTokens {
		if strings.Contains(lower, " "+tok+" ") {
			return confirmNo
		}
	}
	for _, tok := range affirmativeTokens {
		if strings.Contains(lower, " "+tok+" ") {
			return confirmYes
		}
	}
	return confirmUnclear
}

// summarise builds the confirmation summary from the filled slots, required
// values first, in a stable order.
func summarise(task intent.Intent, req Requirements, filled map[string]slots.Slot) string {
	var parts []string
	add := func(names []string) {
		sorted := append([]string{}, names...)
		sort.Strings(sorted)
		for _, name := range sorted {
			if s, ok := filled[name]; ok {
				parts = append(parts, fmt.Sprintf("%s: %s", strings.ReplaceAll(name, "_", " "), s.Value))
			}
		}
	}
	add(req.Required)
	add(req.Optional)

	if len(parts) == 0 {
		return "Let me confirm your request. Is that correct?"
	}
	return fmt.Sprintf("Let me confirm your %s — %s. Is that correct?",
		strings.ReplaceAll(string(task), "_", " "), strings.Join(parts, ", "))
}
