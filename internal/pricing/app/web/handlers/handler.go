package handlers

type Handler interface {
	Ping() error
}

// Pinger is the backing-store health probe the handlers report through.
type Pinger interface {
	Ping() error
}

// NoopPinger backs the handlers when the store has no connection to probe.
type NoopPinger struct{}

func (NoopPinger) Ping() error { return nil }
