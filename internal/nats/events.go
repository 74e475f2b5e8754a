package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamTurns  = "CONCIERGE_TURNS"
	StreamEvents = "CONCIERGE_EVENTS"
)

// Subject constants.
const (
	SubjectTurnInbound  = "concierge.turns.inbound"
	SubjectTurnOutbound = "concierge.turns.outbound"
	SubjectEpisodeEvent = "concierge.events.episode"
	SubjectAuditEvent   = "concierge.events.audit"
)

// Channels a turn can arrive on.
const (
	ChannelXMPP = "xmpp"
	ChannelHTTP = "http"
)

// TurnRequest asks the engine to process one utterance.
type TurnRequest struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	SessionID  string    `json:"session_id"`
	Prompt     string    `json:"prompt"`
	Channel    string    `json:"channel"`
	ReplyTo    string    `json:"reply_to,omitempty"` // full JID for xmpp
	ReplyFrom  string    `json:"reply_from,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// TurnReply carries the rendered reply of a processed TurnRequest.
type TurnReply struct {
	ID        string `json:"id"`
	InReplyTo string `json:"in_reply_to"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	ReplyTo   string `json:"reply_to,omitempty"`
	ReplyFrom string `json:"reply_from,omitempty"`
	Response  string `json:"response"`
	EpisodeID string `json:"episode_id,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

// EpisodeEvent is published after an episode has been persisted.
type EpisodeEvent struct {
	EpisodeID string    `json:"episode_id"`
	ActorID   string    `json:"actor_id"`
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic,omitempty"`
	Outcome   string    `json:"outcome"`
	Domain    string    `json:"domain,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	SameTopic bool      `json:"same_topic"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	ActorID   string    `json:"actor_id"`
	SessionID string    `json:"session_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"` // info, warn, error
	EpisodeID string    `json:"episode_id,omitempty"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}
