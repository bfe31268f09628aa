package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newReadyShared(t *testing.T, count int) *Shared {
	t.Helper()
	s := NewShared(NewVirtualController(count))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return s
}

func TestApply_SetPixel(t *testing.T) {
	s := newReadyShared(t, 25)

	if err := s.Apply(SetPixel(0, RGB{1, 0, 0})); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	px := s.Pixels()
	if px[0] != (RGB{1, 0, 0}) {
		t.Errorf("pixel 0 = %v, want [1 0 0]", px[0])
	}
	for i := 1; i < len(px); i++ {
		if px[i] != Black {
			t.Fatalf("pixel %d = %v, want black", i, px[i])
		}
	}
}

func TestApply_OffClearsEveryPixel(t *testing.T) {
	s := newReadyShared(t, 25)

	if err := s.Apply(SetAll(RGB{0.2, 0.4, 0.6})); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(Off()); err != nil {
		t.Fatal(err)
	}

	for i, p := range s.Pixels() {
		if p != Black {
			t.Fatalf("pixel %d = %v after off, want black", i, p)
		}
	}
}

func TestApply_InvalidIndexLeavesBufferUntouched(t *testing.T) {
	s := newReadyShared(t, 25)
	if err := s.Apply(SetAll(RGB{0, 1, 0})); err != nil {
		t.Fatal(err)
	}
	before := s.Pixels()

	for _, idx := range []uint{25, 26, 1 << 20} {
		err := s.Apply(SetPixel(idx, RGB{1, 0, 0}))
		if !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("Apply(set_pixel %d) error = %v, want ErrInvalidIndex", idx, err)
		}
	}

	after := s.Pixels()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("pixel %d changed from %v to %v on rejected command", i, before[i], after[i])
		}
	}
}

func TestApply_OutOfRangeChannelsPassThrough(t *testing.T) {
	s := newReadyShared(t, 3)

	if err := s.Apply(SetPixel(2, RGB{1.5, -0.25, 7})); err != nil {
		t.Fatal(err)
	}
	if got := s.Pixels()[2]; got != (RGB{1.5, -0.25, 7}) {
		t.Errorf("pixel 2 = %v, want channels stored as given", got)
	}
}

func TestApply_BeforeInitialize(t *testing.T) {
	s := NewShared(NewVirtualController(5))

	if err := s.Apply(Off()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Apply() error = %v, want ErrNotInitialized", err)
	}
}

func TestApply_UnknownKind(t *testing.T) {
	s := newReadyShared(t, 5)

	if err := s.Apply(Command{Kind: "blink"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Apply() error = %v, want ErrUnknownCommand", err)
	}
}

func TestShutdown_IdempotentAndBlanks(t *testing.T) {
	vc := NewVirtualController(4)
	s := NewShared(vc)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(SetAll(RGB{1, 1, 1})); err != nil {
		t.Fatal(err)
	}

	s.Shutdown()
	s.Shutdown()

	for i, p := range vc.Pixels() {
		if p != Black {
			t.Fatalf("pixel %d = %v after shutdown, want black", i, p)
		}
	}
	if s.Ready() {
		t.Error("Ready() = true after shutdown")
	}
	if err := s.Apply(Off()); !errors.Is(err, ErrClosed) {
		t.Errorf("Apply() after shutdown error = %v, want ErrClosed", err)
	}
	if err := s.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize() after shutdown error = %v, want ErrClosed", err)
	}
}

// Concurrent SetAll commands must never leave a buffer that mixes channels
// from two different colors.
func TestApply_ConcurrentSetAllIsAtomic(t *testing.T) {
	s := newReadyShared(t, 25)
	red := RGB{1, 0, 0}
	blue := RGB{0, 0, 1}

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for _, c := range []RGB{red, blue} {
			wg.Add(1)
			go func(c RGB) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					if err := s.Apply(SetAll(c)); err != nil {
						t.Errorf("Apply() error = %v", err)
						return
					}
				}
			}(c)
		}

		// Read while writers are running; every snapshot must be uniform.
		for i := 0; i < 20; i++ {
			assertUniform(t, s.Pixels(), red, blue)
		}
		wg.Wait()
		assertUniform(t, s.Pixels(), red, blue)
	}
}

func assertUniform(t *testing.T, px []RGB, allowed ...RGB) {
	t.Helper()
	first := px[0]
	for i, p := range px {
		if p != first {
			t.Fatalf("pixel %d = %v differs from pixel 0 = %v", i, p, first)
		}
	}
	for _, a := range allowed {
		if first == a || first == Black {
			return
		}
	}
	t.Fatalf("display color %v is none of %v", first, allowed)
}

func TestSubscribe_ReceivesCommittedState(t *testing.T) {
	s := newReadyShared(t, 3)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	if err := s.Apply(SetPixel(1, RGB{0, 1, 0})); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Command.Kind != KindSetPixel {
		t.Errorf("event kind = %q, want set_pixel", evt.Command.Kind)
	}
	if evt.Pixels[1] != (RGB{0, 1, 0}) {
		t.Errorf("event pixel 1 = %v, want [0 1 0]", evt.Pixels[1])
	}
}

func TestSubscribe_NoEventForRejectedCommand(t *testing.T) {
	s := newReadyShared(t, 3)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	_ = s.Apply(SetPixel(9, RGB{1, 1, 1}))

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}

func TestShutdown_ClosesSubscribers(t *testing.T) {
	s := newReadyShared(t, 3)
	ch := s.Subscribe()

	s.Shutdown()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel still open after shutdown")
	}

	// Unsubscribing after shutdown must not double-close.
	s.Unsubscribe(ch)

	late := s.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription after shutdown returned an open channel")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{SetPixel(3, RGB{1, 0, 0}), "set_pixel(3, [1 0 0])"},
		{SetAll(RGB{0, 0, 1}), "set_all([0 0 1])"},
		{Off(), "off"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
