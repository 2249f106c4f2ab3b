package domain

import "time"

// SessionState models the realtime session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateActive     SessionState = "active"
	SessionStateClosed     SessionState = "closed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonStandby           SessionStateReason = "standby"
	SessionReasonStartRequested    SessionStateReason = "start_requested"
	SessionReasonChannelOpen       SessionStateReason = "channel_open"
	SessionReasonStopRequested     SessionStateReason = "stop_requested"
	SessionReasonRestarted         SessionStateReason = "restarted"
	SessionReasonRemoteClosed      SessionStateReason = "remote_closed"
	SessionReasonChannelFailed     SessionStateReason = "channel_failed"
	SessionReasonAcquisitionFailed SessionStateReason = "acquisition_failed"
	SessionReasonConnectFailed     SessionStateReason = "connect_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeAcquisition ErrorCode = "acquisition"
	ErrorCodeChannel     ErrorCode = "channel"
	ErrorCodeDecode      ErrorCode = "decode"
	ErrorCodeDispatch    ErrorCode = "dispatch"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
)

// VoiceState is the UI-facing snapshot of audio activity.
type VoiceState struct {
	IsListening bool    `json:"isListening"`
	IsSpeaking  bool    `json:"isSpeaking"`
	Volume      float64 `json:"volume"`
}

// ChatRole identifies who produced a chat entry.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatEntry is one append-only conversation log line.
type ChatEntry struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolInvocation is a function call requested by the remote engine.
type ToolInvocation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult answers exactly one ToolInvocation with the same ID.
type ToolResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
}

// ChannelEventKind identifies a channel callback.
type ChannelEventKind string

const (
	ChannelEventOpen    ChannelEventKind = "open"
	ChannelEventMessage ChannelEventKind = "message"
	ChannelEventClose   ChannelEventKind = "close"
	ChannelEventError   ChannelEventKind = "error"
)

// ChannelEvent is one inbound callback from the remote channel.
type ChannelEvent struct {
	Kind    ChannelEventKind
	Message ServerMessage
	Reason  string
	Err     error
}

// ServerMessage carries everything the remote engine can send in one frame.
// AudioChunks hold transport-text encoded PCM16LE payloads in arrival order.
type ServerMessage struct {
	AudioChunks     []string
	ToolInvocations []ToolInvocation
	Interrupted     bool
	TurnComplete    bool
	InputText       string
	OutputText      string
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Voice     VoiceState   `json:"voice"`
	Message   string       `json:"message,omitempty"`
}
