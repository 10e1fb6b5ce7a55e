package exchange

// Event is delivered to observers in the order things happen during an exchange.
type Event interface {
	isExchangeEvent()
}

type MessageAppended struct {
	Message Message
}

type StateChanged struct {
	From State
	To   State
}

// ExchangeFailed reports a locally recovered failure. Err wraps one of
// chatapi.ErrThreadUnavailable, chatapi.ErrDeliveryFailed or chatapi.ErrResponseFailed.
type ExchangeFailed struct {
	Err error
}

func (MessageAppended) isExchangeEvent() {}
func (StateChanged) isExchangeEvent()    {}
func (ExchangeFailed) isExchangeEvent()  {}

type Observer interface {
	OnEvent(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}
