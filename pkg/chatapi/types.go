package chatapi

// Endpoint paths relative to the configured base URL.
const (
	CreateThreadPath = "/create-thread"
	SendMessagePath  = "/send-message"
	GetResponsePath  = "/get-response"
)

type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

type SendMessageRequest struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content"`
}

type GetResponseRequest struct {
	ThreadID string `json:"thread_id"`
}

// GetResponseResponse carries the latest assistant reply. An empty Content means
// no reply is available yet.
type GetResponseResponse struct {
	Content string `json:"content"`
}
