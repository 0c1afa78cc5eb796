package queue_test

import (
	"errors"
	"testing"

	"github.com/fnecore/corehost/internal/queue"
)

func TestNew(t *testing.T) {
	t.Parallel()
	q := queue.New(1024)
	if q == nil {
		t.Fatal("Expected non-nil queue")
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got len %d", q.Len())
	}
}

func TestPushAndPopFIFOOrder(t *testing.T) {
	t.Parallel()
	q := queue.New(1024)

	if err := q.Push(queue.OriginNetwork, []byte("value1")); err != nil {
		t.Fatalf("Unexpected error on Push: %v", err)
	}
	if err := q.Push(queue.OriginNetwork, []byte("value2")); err != nil {
		t.Fatalf("Unexpected error on Push: %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("Expected len 2, got %d", q.Len())
	}

	burst, ok := q.Pop()
	if !ok || string(burst) != "value1" {
		t.Errorf("Expected 'value1', got '%s' (ok=%v)", string(burst), ok)
	}
	burst, ok = q.Pop()
	if !ok || string(burst) != "value2" {
		t.Errorf("Expected 'value2', got '%s' (ok=%v)", string(burst), ok)
	}
	if _, ok = q.Pop(); ok {
		t.Error("Expected Pop to report empty after draining both values")
	}
}

func TestImmediateJumpsNormalFIFO(t *testing.T) {
	t.Parallel()
	q := queue.New(1024)

	if err := q.Push(queue.OriginNetwork, []byte("voice")); err != nil {
		t.Fatalf("Unexpected error on Push: %v", err)
	}
	q.PushImmediate([]byte("control"))

	burst, ok := q.Pop()
	if !ok || string(burst) != "control" {
		t.Errorf("Expected immediate burst first, got '%s' (ok=%v)", string(burst), ok)
	}
	burst, ok = q.Pop()
	if !ok || string(burst) != "voice" {
		t.Errorf("Expected normal burst second, got '%s' (ok=%v)", string(burst), ok)
	}
}

func TestNetworkOriginOverflowErrors(t *testing.T) {
	t.Parallel()
	q := queue.New(8)

	if err := q.Push(queue.OriginNetwork, []byte("12345678")); err != nil {
		t.Fatalf("Unexpected error filling budget exactly: %v", err)
	}
	err := q.Push(queue.OriginNetwork, []byte("x"))
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestRFOriginOverflowResizes(t *testing.T) {
	t.Parallel()
	q := queue.New(8)

	if err := q.Push(queue.OriginRF, []byte("12345678")); err != nil {
		t.Fatalf("Unexpected error filling budget exactly: %v", err)
	}
	if err := q.Push(queue.OriginRF, []byte("overflow")); err != nil {
		t.Errorf("Expected RF-origin push to grow past budget, got error: %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("Expected both RF-origin bursts queued, got len %d", q.Len())
	}
}

func TestUnboundedQueueNeverErrors(t *testing.T) {
	t.Parallel()
	q := queue.New(0)

	for i := 0; i < 100; i++ {
		if err := q.Push(queue.OriginNetwork, []byte("x")); err != nil {
			t.Fatalf("Unexpected error on unbounded queue: %v", err)
		}
	}
	if q.Len() != 100 {
		t.Errorf("Expected 100 queued bursts, got %d", q.Len())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	q := queue.New(1024)

	_ = q.Push(queue.OriginNetwork, []byte("value1"))
	q.PushImmediate([]byte("control"))
	q.Reset()

	if q.Len() != 0 {
		t.Errorf("Expected empty queue after Reset, got len %d", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("Expected Pop to report empty after Reset")
	}
}

func TestSetForCreatesPerDestinationQueue(t *testing.T) {
	t.Parallel()
	s := queue.NewSet(1024)

	_ = s.For("peer-1").Push(queue.OriginNetwork, []byte("a"))
	_ = s.For("peer-2").Push(queue.OriginNetwork, []byte("b"))
	_ = s.For("peer-1").Push(queue.OriginNetwork, []byte("c"))

	if s.For("peer-1").Len() != 2 {
		t.Errorf("Expected peer-1 to have 2 queued bursts, got %d", s.For("peer-1").Len())
	}
	if s.For("peer-2").Len() != 1 {
		t.Errorf("Expected peer-2 to have 1 queued burst, got %d", s.For("peer-2").Len())
	}
}

func TestSetDeleteDropsBacklog(t *testing.T) {
	t.Parallel()
	s := queue.NewSet(1024)

	q := s.For("peer-1")
	_ = q.Push(queue.OriginNetwork, []byte("a"))
	s.Delete("peer-1")

	// A fresh Queue is created on next access; the old backlog is gone.
	if s.For("peer-1").Len() != 0 {
		t.Errorf("Expected fresh queue after Delete, got len %d", s.For("peer-1").Len())
	}
}

func TestPushBinaryData(t *testing.T) {
	t.Parallel()
	q := queue.New(1024)

	data := []byte{0x00, 0xFF, 0xAB, 0xCD}
	if err := q.Push(queue.OriginNetwork, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	burst, ok := q.Pop()
	if !ok {
		t.Fatal("Expected a queued burst")
	}
	if len(burst) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(burst))
	}
	for i, b := range data {
		if burst[i] != b {
			t.Errorf("Byte %d: expected %x, got %x", i, b, burst[i])
		}
	}
}
