package runctx

import (
	"context"
	"testing"
	"time"

	"unpod-notifier/internal/logging"
)

func TestSendLatest_EvictsOldestWhenFull(t *testing.T) {
	ch := make(chan int, 2)
	SendLatest(ch, 1)
	SendLatest(ch, 2)
	SendLatest(ch, 3)

	if got := <-ch; got != 2 {
		t.Fatalf("first receive = %d, want 2", got)
	}
	if got := <-ch; got != 3 {
		t.Fatalf("second receive = %d, want 3", got)
	}
}

func TestRecvOrDone_ReturnsValueBeforeCancel(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "hello"
	got, ok := RecvOrDone(context.Background(), "test recv", logging.New(false), ch)
	if !ok || got != "hello" {
		t.Fatalf("RecvOrDone() = %q, %v, want %q, true", got, ok, "hello")
	}
}

func TestRecvOrDone_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan string)
	if _, ok := RecvOrDone(ctx, "test recv", logging.New(false), ch); ok {
		t.Fatal("RecvOrDone() ok = true after cancel, want false")
	}
}

func TestSendOrDone_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan int)
	if SendOrDone(ctx, "test send", logging.New(false), ch, 7) {
		t.Fatal("SendOrDone() = true after cancel, want false")
	}
}

func TestSleepOrDone_CancelWinsOverTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if SleepOrDone(ctx, "test sleep", logging.New(false), time.Hour) {
		t.Fatal("SleepOrDone() = true after cancel, want false")
	}
}
