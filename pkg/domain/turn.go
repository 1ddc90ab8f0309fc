package domain

// Session is the per-user context the transport layer passes into a turn.
// It replaces any global "selected chat" state: the transport owns which
// chat the user is talking to. ChatID is the telegram chat the message
// arrived in; settings such as the selected model are keyed by it.
type Session struct {
	UserID  int64
	ChatID  int64
	ChatUID int64
}

// TurnResult is everything the transport needs to render a finished turn.
// Segments are display-ready HTML chunks in order, each within the
// transport message length limit.
type TurnResult struct {
	ChatUID    int64
	Segments   []string
	ImageURLs  []string
	SourceURLs []string
	Usage      Usage
	Price      float64
}

// ToolResult is the outcome of executing a single tool call. Content is
// always non-empty: failures are reported as text so the model can
// self-correct on the next round.
type ToolResult struct {
	Content   string
	SourceURL string
	ImageURL  string
}
