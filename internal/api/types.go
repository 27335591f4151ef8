package api

import "stepwise/internal/logging"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Message types a client sends over the frame socket.
const (
	MessageFrame        = "frame"
	MessageStart        = "start"
	MessageHandoffStart = "handoff_start"
	MessageHandoffStop  = "handoff_stop"
	MessageRestore      = "restore"
)

// Payload and result item types.
const (
	PayloadImage = "image"
	PayloadText  = "text"
)

// ToServer is one client message on the frame socket. Payload is base64 in
// JSON.
type ToServer struct {
	Type        string      `json:"type"`
	PayloadType string      `json:"payloadType,omitempty"`
	Payload     []byte      `json:"payload,omitempty"`
	State       *StateTuple `json:"state,omitempty"`
}

// StateTuple is the progress state the client stores and echoes back.
// StepID 0 is the start sentinel.
type StateTuple struct {
	Step                       string `json:"step"`
	StepID                     int    `json:"stepId"`
	Revision                   int64  `json:"revision"`
	FramesWithOneConfirmation  int    `json:"framesWithOneConfirmation"`
	FramesWithTwoConfirmations int    `json:"framesWithTwoConfirmations"`
}

// ResultItem is one content item: an instruction text or an image.
type ResultItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// HandoffInfo carries the meeting credentials for a started hand-off.
type HandoffInfo struct {
	Token           string `json:"token"`
	Step            string `json:"step"`
	MeetingNumber   string `json:"meetingNumber,omitempty"`
	MeetingPassword string `json:"meetingPassword,omitempty"`
	AppKey          string `json:"appKey,omitempty"`
	AppSecret       string `json:"appSecret,omitempty"`
}

// ToClient is the server's reply to one client message.
type ToClient struct {
	Status    string       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Results   []ResultItem `json:"results,omitempty"`
	State     StateTuple   `json:"state"`
	Handoff   *HandoffInfo `json:"handoff,omitempty"`
	Done      bool         `json:"done"`
	Discarded bool         `json:"discarded,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool     `json:"running"`
	PID             int      `json:"pid"`
	LockFilePath    string   `json:"lockFilePath"`
	StartedAt       string   `json:"startedAt,omitempty"`
	DetectorKind    string   `json:"detectorKind"`
	DetectorURL     string   `json:"detectorUrl"`
	Tasks           []string `json:"tasks"`
	DefaultTask     string   `json:"defaultTask"`
	Sessions        int      `json:"sessions"`
	PendingHandoffs int      `json:"pendingHandoffs"`
	MissingImages   []string `json:"missingImages,omitempty"`
}

// StepInfo describes one catalog step.
type StepInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	Final       bool   `json:"final,omitempty"`
}

// ClassInfo maps a detector label to its class id.
type ClassInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TaskSummary is the list view of a task variant.
type TaskSummary struct {
	Name    string `json:"name"`
	Steps   int    `json:"steps"`
	Initial string `json:"initial"`
	Final   string `json:"final"`
}

// TaskDetail is the full view of a task variant.
type TaskDetail struct {
	Name    string      `json:"name"`
	Steps   []StepInfo  `json:"steps"`
	Classes []ClassInfo `json:"classes"`
}

// TaskListResponse wraps the served task variants.
type TaskListResponse struct {
	Tasks []TaskSummary `json:"tasks"`
}

// Detection is one box in an evaluation request. Label wins over Class
// when both are set.
type Detection struct {
	Class int        `json:"class,omitempty"`
	Label string     `json:"label,omitempty"`
	Box   [4]float64 `json:"box"`
	Score float64    `json:"score"`
}

// EvaluateRequest runs one stateless evaluation from a stored state.
type EvaluateRequest struct {
	State      StateTuple  `json:"state"`
	Detections []Detection `json:"detections"`
}

// EvaluateResponse reports the outcome of one evaluation.
type EvaluateResponse struct {
	Outcome    string       `json:"outcome"`
	State      StateTuple   `json:"state"`
	Results    []ResultItem `json:"results,omitempty"`
	Supplement string       `json:"supplement,omitempty"`
	Done       bool         `json:"done"`
}

// SessionInfo describes a live frame session.
type SessionInfo struct {
	ID         string     `json:"id"`
	Task       string     `json:"task"`
	State      StateTuple `json:"state"`
	Suspended  bool       `json:"suspended"`
	Done       bool       `json:"done"`
	StartedAt  string     `json:"startedAt,omitempty"`
	LastActive string     `json:"lastActive,omitempty"`
}

// SessionListResponse wraps live sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// HandoffTicket describes a pending hand-off.
type HandoffTicket struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	Task      string `json:"task"`
	Step      string `json:"step"`
	OpenedAt  string `json:"openedAt,omitempty"`
	Reported  string `json:"reported,omitempty"`
}

// HandoffListResponse wraps pending hand-offs.
type HandoffListResponse struct {
	Handoffs []HandoffTicket `json:"handoffs"`
}

// ResumeRequest is the expert's step report.
type ResumeRequest struct {
	Step string `json:"step"`
}

// ResumeResponse acknowledges a step report.
type ResumeResponse struct {
	Token string `json:"token"`
	Step  string `json:"step"`
}

// LogStreamResponse carries buffered log events and the next cursor.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// ErrorResponse is returned for failed HTTP requests.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}
