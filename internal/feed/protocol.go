package feed

// Message types a producer can send on the feed socket.
const (
	TypeHello       = "hello"
	TypeKey         = "key"
	TypeMouseMove   = "mouse_move"
	TypeMouseButton = "mouse_button"
	TypeMouseScroll = "mouse_scroll"
	TypeFrame       = "frame"
)

// Message is one JSON frame on the producer feed. TS is the producer's
// clock in unix milliseconds; the listener rebases it onto the session
// timeline. A zero TS means "stamp it on arrival".
type Message struct {
	Type string `json:"type"`
	TS   int64  `json:"ts,omitempty"`

	// key
	Key     string `json:"key,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`

	// mouse_move
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// mouse_button
	Button string `json:"btn,omitempty"`

	// mouse_scroll
	DX int `json:"dx,omitempty"`
	DY int `json:"dy,omitempty"`

	// hello
	Source string `json:"source,omitempty"`

	// frame
	Index int64 `json:"idx,omitempty"`
}
