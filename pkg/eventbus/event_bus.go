package eventbus

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventBus dispatches published values to every subscribed handler whose
// function signature matches the published arguments.
type EventBus interface {
	Publish(args ...interface{})
	Subscribe(handler interface{})
	Unsubscribe(handler interface{})
	Clear()
	SubscribersCount() int
}

type publisherImpl struct {
	log         *logrus.Logger
	mu          sync.RWMutex
	subscribers []interface{}
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{log: log}
}

// MatchSignature reports whether handler is a func whose parameters accept
// the given arguments positionally.
func MatchSignature(handler interface{}, args []interface{}) bool {
	t := reflect.TypeOf(handler)
	if t.Kind() != reflect.Func {
		return false
	}
	if t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			if paramType.Kind() != reflect.Interface && paramType.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		argType := reflect.TypeOf(arg)
		if paramType.Kind() == reflect.Interface {
			if !argType.Implements(paramType) {
				return false
			}
			continue
		}
		if !argType.AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func (p *publisherImpl) Publish(args ...interface{}) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		in[i] = reflect.ValueOf(arg)
	}

	p.mu.RLock()
	subscribers := make([]interface{}, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.RUnlock()

	handled := false
	for _, handler := range subscribers {
		if !MatchSignature(handler, args) {
			continue
		}
		p.call(handler, in)
		handled = true
	}

	if !handled && p.log != nil {
		p.log.Warnf("eventbus: no matching subscribers for event with args: %v", args)
	}
}

func (p *publisherImpl) call(handler interface{}, in []reflect.Value) {
	v := reflect.ValueOf(handler)
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Errorf("eventbus: handler %s panicked: %v", v.Type().String(), r)
			}
		}
	}()
	v.Call(in)
}

func (p *publisherImpl) Subscribe(handler interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, handler)
}

func (p *publisherImpl) Unsubscribe(handler interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ptr := reflect.ValueOf(handler).Pointer()
	for i, h := range p.subscribers {
		if reflect.ValueOf(h).Pointer() == ptr {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}
