package live

// Client message types.
const (
	MsgHello   = "hello"
	MsgStart   = "start"
	MsgStop    = "stop"
	MsgToggle  = "toggle"
	MsgRestart = "restart"
	MsgAnswer  = "answer"
)

// Server event types.
const (
	EvtReady        = "ready"
	EvtWord         = "word"
	EvtProgress     = "progress"
	EvtPopup        = "popup"
	EvtPopupCleared = "popup_cleared"
	EvtGatePassed   = "gate_passed"
	EvtTravel       = "travel"
	EvtRecording    = "recording"
	EvtFinished     = "finished"
	EvtError        = "error"
)

// ClientMessage is a text frame sent by the browser.
type ClientMessage struct {
	Type string `json:"type"`

	// ContentType is the MIME type of the binary frames that follow (hello).
	ContentType string `json:"content_type,omitempty"`
	// Microphone reports whether the browser granted microphone access (hello).
	Microphone bool `json:"microphone,omitempty"`
	// Locale selects the message language (hello). Empty keeps the server
	// default.
	Locale string `json:"locale,omitempty"`

	// Text is a typed answer (answer).
	Text string `json:"text,omitempty"`
}

// Event is a text frame sent to the browser. Pointer fields are set only for
// the event types that carry them so zero values survive encoding.
type Event struct {
	Type string `json:"type"`

	SessionID string   `json:"session_id,omitempty"`
	Word      string   `json:"word,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Text      string   `json:"text,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Gate      *int     `json:"gate,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Recording *bool    `json:"recording,omitempty"`
	Message   string   `json:"message,omitempty"`
}

func ptr[T any](v T) *T { return &v }
