// Package dashboard exposes a read-only view of the running bot over HTTP.
// The bot publishes immutable updates into a Hub; handlers only read
// copies of the Hub's state.
package dashboard

import (
	"sync"
	"time"

	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
	"github.com/rustyeddy/levtrader/state"
)

// MaxConversations bounds the conversation log.
const MaxConversations = 50

// Conversation is one decision round as shown on the dashboard.
type Conversation struct {
	ID             string                `json:"id"`
	Time           time.Time             `json:"timestamp"`
	WakeReason     string                `json:"wake_reason,omitempty"`
	Summary        string                `json:"summary"`
	UserPrompt     string                `json:"user_prompt"`
	ChainOfThought map[string]llm.Signal `json:"chain_of_thought"`
	Actions        []llm.Action          `json:"actions"`
}

// ConversationFrom builds a Conversation from a decision and its prompt.
func ConversationFrom(d llm.Decision, prompt, reason string) Conversation {
	return Conversation{
		ID:             d.ID,
		Time:           d.Time,
		WakeReason:     reason,
		Summary:        d.Summary,
		UserPrompt:     prompt,
		ChainOfThought: d.ChainOfThought,
		Actions:        d.Actions,
	}
}

// Update is what the bot publishes after every iteration.
type Update struct {
	Time         time.Time
	Prices       market.Prices
	Positions    []sim.PositionSummary
	Closed       []sim.Position
	Stats        sim.Statistics
	ValueHistory []state.ValuePoint
	PriceHistory map[string][]state.PricePoint
}

type Status struct {
	Running    bool       `json:"running"`
	LastUpdate *time.Time `json:"last_update"`
	Iteration  int        `json:"iteration"`
}

// State is the full dashboard payload.
type State struct {
	Prices        market.Prices                 `json:"prices"`
	PriceHistory  map[string][]state.PricePoint `json:"price_history"`
	ValueHistory  []state.ValuePoint            `json:"value_history"`
	Positions     []sim.PositionSummary         `json:"positions"`
	Trades        []sim.Position                `json:"trades"`
	Stats         sim.Statistics                `json:"stats"`
	LastUpdate    *time.Time                    `json:"last_update"`
	Running       bool                          `json:"running"`
	Iteration     int                           `json:"iteration"`
	Conversations []Conversation                `json:"llm_conversations"`
}

func (s State) Status() Status {
	return Status{Running: s.Running, LastUpdate: s.LastUpdate, Iteration: s.Iteration}
}

type Hub struct {
	mu    sync.RWMutex
	state State
}

func NewHub() *Hub {
	return &Hub{state: State{
		Prices:        market.Prices{},
		PriceHistory:  map[string][]state.PricePoint{},
		ValueHistory:  []state.ValuePoint{},
		Positions:     []sim.PositionSummary{},
		Trades:        []sim.Position{},
		Conversations: []Conversation{},
	}}
}

func (h *Hub) SetRunning(running bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Running = running
}

// PublishIteration replaces the market and account view with u.
func (h *Hub) PublishIteration(iteration int, u Update) {
	t := u.Time
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.Iteration = iteration
	h.state.LastUpdate = &t
	h.state.Prices = u.Prices.Clone()
	h.state.Positions = append([]sim.PositionSummary{}, u.Positions...)
	h.state.Trades = append([]sim.Position{}, u.Closed...)
	h.state.Stats = u.Stats
	h.state.ValueHistory = append([]state.ValuePoint{}, u.ValueHistory...)
	h.state.PriceHistory = copyPriceHistory(u.PriceHistory)
}

// PublishConversation appends c, dropping the oldest beyond MaxConversations.
func (h *Hub) PublishConversation(c Conversation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	convs := append(h.state.Conversations, c)
	if len(convs) > MaxConversations {
		convs = append([]Conversation{}, convs[len(convs)-MaxConversations:]...)
	}
	h.state.Conversations = convs
}

// State returns a deep copy safe to hand to encoders.
func (h *Hub) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := h.state
	s.Prices = h.state.Prices.Clone()
	s.PriceHistory = copyPriceHistory(h.state.PriceHistory)
	s.ValueHistory = append([]state.ValuePoint{}, h.state.ValueHistory...)
	s.Positions = append([]sim.PositionSummary{}, h.state.Positions...)
	s.Trades = append([]sim.Position{}, h.state.Trades...)
	s.Conversations = append([]Conversation{}, h.state.Conversations...)
	if h.state.LastUpdate != nil {
		t := *h.state.LastUpdate
		s.LastUpdate = &t
	}
	return s
}

func copyPriceHistory(in map[string][]state.PricePoint) map[string][]state.PricePoint {
	out := make(map[string][]state.PricePoint, len(in))
	for sym, pts := range in {
		out[sym] = append([]state.PricePoint{}, pts...)
	}
	return out
}
