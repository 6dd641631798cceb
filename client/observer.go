package client

// Observer receives asynchronous facade events. Calls come from the hub's
// goroutine or from the goroutine running a public operation, never with a
// facade lock held, so an observer may call back into the client.
type Observer interface {
	OnMessage(msg ChatMessage)
	OnUserJoined(username string)
	OnUserLeft(username string)
	OnConnected()
	OnDisconnected(reason string)
	OnError(err error)
}

// Handlers adapts plain funcs to Observer. Nil fields are skipped.
type Handlers struct {
	Message      func(msg ChatMessage)
	UserJoined   func(username string)
	UserLeft     func(username string)
	Connected    func()
	Disconnected func(reason string)
	Error        func(err error)
}

func (h Handlers) OnMessage(msg ChatMessage) {
	if h.Message != nil {
		h.Message(msg)
	}
}

func (h Handlers) OnUserJoined(username string) {
	if h.UserJoined != nil {
		h.UserJoined(username)
	}
}

func (h Handlers) OnUserLeft(username string) {
	if h.UserLeft != nil {
		h.UserLeft(username)
	}
}

func (h Handlers) OnConnected() {
	if h.Connected != nil {
		h.Connected()
	}
}

func (h Handlers) OnDisconnected(reason string) {
	if h.Disconnected != nil {
		h.Disconnected(reason)
	}
}

func (h Handlers) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
