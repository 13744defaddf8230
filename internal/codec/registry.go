package codec

import (
	"errors"
	"fmt"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// ErrUnsupportedMessage is returned by Decode when no parser knows the body element.
var ErrUnsupportedMessage = errors.New("codec: unsupported message body")

// Registry selects an inbound parser by the body element found under NPCMessage.
type Registry struct {
	byElement map[string]Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{byElement: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.Register(p)
	}

	return r
}

// DefaultParsers lists the inbound messages this node understands.
func DefaultParsers() []Parser {
	return []Parser{
		PortRequestAckParser{},
		PortResponseParser{},
		ReadyToScheduleParser{},
		ScheduleNotificationParser{},
		CancellationAckParser{},
		ReversalAcceptParser{},
		ReversalRejectParser{},
		PortRequestParser{},
	}
}

func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultParsers()...)
}

func (r *Registry) Register(p Parser) {
	r.byElement[p.BodyElement()] = p
}

// Types returns the message types the registry can decode.
func (r *Registry) Types() []model.MessageType {
	types := make([]model.MessageType, 0, len(r.byElement))
	for _, p := range r.byElement {
		types = append(types, p.MessageType())
	}

	return types
}

func (r *Registry) Decode(xml string) (*Parsed, error) {
	element, err := BodyElement(xml)
	if err != nil {
		return nil, err
	}

	p, ok := r.byElement[element]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessage, element)
	}

	return p.Parse(xml)
}
