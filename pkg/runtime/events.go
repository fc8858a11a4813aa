package runtime

import "strings"

// EventSystem maps a (control, event) pair to the ordered handler names
// bound to it. The same handler may be bound more than once.
type EventSystem struct {
	handlers map[string][]string
}

func NewEventSystem() *EventSystem {
	return &EventSystem{handlers: make(map[string][]string)}
}

func eventKey(control, event string) string {
	return strings.ToLower(control) + "_" + strings.ToLower(event)
}

func (s *EventSystem) Register(control, event, handler string) {
	key := eventKey(control, event)
	s.handlers[key] = append(s.handlers[key], handler)
}

// Remove unbinds the first registration of handler, compared
// case-insensitively.
func (s *EventSystem) Remove(control, event, handler string) {
	key := eventKey(control, event)
	list := s.handlers[key]
	for idx, name := range list {
		if strings.EqualFold(name, handler) {
			s.handlers[key] = append(list[:idx:idx], list[idx+1:]...)
			break
		}
	}
	if len(s.handlers[key]) == 0 {
		delete(s.handlers, key)
	}
}

// Handlers returns a copy of the handlers in registration order.
func (s *EventSystem) Handlers(control, event string) []string {
	list := s.handlers[eventKey(control, event)]
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}

func (s *EventSystem) Clear() {
	s.handlers = make(map[string][]string)
}
