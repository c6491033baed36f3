package hooks

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forumbase/notifyd/pkg/logger"
)

func TestFilterChainTransforms(t *testing.T) {
	bus := NewBus(logger.Discard())
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return payload.(int) + 1, nil
	})
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return payload.(int) * 10, nil
	})

	result := bus.Filter("test.hook", 1)
	if result != 20 {
		t.Errorf("Filter = %v, want 20: listeners run in registration order", result)
	}
}

func TestFilterVetoShortCircuits(t *testing.T) {
	bus := NewBus(logger.Discard())
	var reached bool
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return nil, nil
	})
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		reached = true
		return payload, nil
	})

	if result := bus.Filter("test.hook", "payload"); result != nil {
		t.Errorf("Filter = %v, want nil veto", result)
	}
	if reached {
		t.Error("veto must stop the chain")
	}
}

func TestFilterErrorKeepsPayload(t *testing.T) {
	bus := NewBus(logger.Discard())
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return "garbage", errors.New("boom")
	})
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return payload.(string) + "!", nil
	})

	if result := bus.Filter("test.hook", "ok"); result != "ok!" {
		t.Errorf("Filter = %v, want the failing listener skipped", result)
	}
}

func TestFilterPanicIsIsolated(t *testing.T) {
	bus := NewBus(logger.Discard())
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		panic("listener bug")
	})
	bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
		return payload.(string) + "!", nil
	})

	if result := bus.Filter("test.hook", "ok"); result != "ok!" {
		t.Errorf("Filter = %v, want the panicking listener skipped", result)
	}
}

func TestFilterNoListeners(t *testing.T) {
	bus := NewBus(logger.Discard())
	if result := bus.Filter("nobody.home", "payload"); result != "payload" {
		t.Errorf("Filter = %v, want the payload unchanged", result)
	}
}

func TestFireIsAsynchronous(t *testing.T) {
	bus := NewBus(logger.Discard())
	done := make(chan string, 1)
	bus.RegisterAction("test.hook", func(payload interface{}) {
		done <- payload.(string)
	})

	bus.Fire("test.hook", "hello")
	select {
	case got := <-done:
		if got != "hello" {
			t.Errorf("payload = %q, want %q", got, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("action listener never ran")
	}
}

func TestFireStaticWaitsForAllListeners(t *testing.T) {
	bus := NewBus(logger.Discard())
	var count int32
	for i := 0; i < 5; i++ {
		bus.RegisterStatic("test.hook", func(payload interface{}) {
			atomic.AddInt32(&count, 1)
		})
	}

	bus.FireStatic("test.hook", nil)
	if got := atomic.LoadInt32(&count); got != 5 {
		t.Errorf("listeners run = %d, want 5 before FireStatic returns", got)
	}
}

func TestFireStaticPanicDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(logger.Discard())
	var count int32
	bus.RegisterStatic("test.hook", func(payload interface{}) {
		panic("listener bug")
	})
	bus.RegisterStatic("test.hook", func(payload interface{}) {
		atomic.AddInt32(&count, 1)
	})

	bus.FireStatic("test.hook", nil)
	if atomic.LoadInt32(&count) != 1 {
		t.Error("a panicking static listener must not take the others down")
	}
}

func TestConcurrentRegisterAndDispatch(t *testing.T) {
	bus := NewBus(logger.Discard())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.RegisterFilter("test.hook", func(payload interface{}) (interface{}, error) {
				return payload, nil
			})
		}()
		go func() {
			defer wg.Done()
			bus.Filter("test.hook", "payload")
		}()
	}
	wg.Wait()
}
