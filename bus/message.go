package bus

import "fmt"

// Error codes carried in error replies. The numbering follows the JSON-RPC
// convention for the shared cases.
const (
	CodeObjectNotFound = -32000
	CodeMethodNotFound = -32601
	CodeShapeMismatch  = -32602
	CodeInternal       = -32603
)

// Message is the frame exchanged between peers. A frame with a Method is a
// request; with an ID but no Method it is a reply. Requests without an ID
// are one-way notifications and never produce a reply frame.
type Message struct {
	ID     uint64    `json:"id,omitempty"`
	Path   string    `json:"path,omitempty"`
	Iface  string    `json:"iface,omitempty"`
	Method string    `json:"method,omitempty"`
	Params []byte    `json:"params,omitempty"`
	Result []byte    `json:"result,omitempty"`
	Error  *ErrReply `json:"error,omitempty"`
}

// IsRequest returns true if the message carries a method invocation.
func (m *Message) IsRequest() bool {
	return m.Method != ""
}

// IsReply returns true if the message answers an earlier request.
func (m *Message) IsReply() bool {
	return m.Method == "" && m.ID != 0
}

func (m *Message) String() string {
	if m.IsRequest() {
		return fmt.Sprintf("request(%d %s %s.%s)", m.ID, m.Path, m.Iface, m.Method)
	}
	return fmt.Sprintf("reply(%d)", m.ID)
}

// ErrReply is the wire form of a dispatch failure, returned to callers of
// Call-direction methods.
type ErrReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (err *ErrReply) Error() string {
	return fmt.Sprintf("%d: %s", err.Code, err.Message)
}

// ErrorCode returns the code carried by the reply.
func (err *ErrReply) ErrorCode() int {
	return err.Code
}
