package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeClientScripted(t *testing.T) {
	f := NewFake(
		FakeReply{Text: "raw"},
		FakeReply{Text: `{"action":"write"}`},
		FakeReply{Chunks: []string{"a", "b"}},
	)
	ctx := context.Background()

	if got, err := f.Complete(ctx, Request{Model: "m1"}); err != nil || got != "raw" {
		t.Fatalf("Complete = %q, %v", got, err)
	}
	var out planReply
	if err := f.CompleteStructured(ctx, Request{}, MustSchemaFor[planReply]("plan"), &out); err != nil || out.Action != "write" {
		t.Fatalf("CompleteStructured = %+v, %v", out, err)
	}
	s, err := f.Stream(ctx, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if got, err := Collect(s); err != nil || got != "ab" {
		t.Fatalf("Stream = %q, %v", got, err)
	}
	if _, err := f.Complete(ctx, Request{}); err == nil {
		t.Error("unscripted call should fail")
	}
	if n := len(f.Requests()); n != 4 {
		t.Errorf("Requests = %d, want 4", n)
	}
	if f.Schemas()[1] == nil || f.Schemas()[0] != nil {
		t.Error("schemas not recorded per request")
	}
}

func TestFakeStreamCancelled(t *testing.T) {
	f := NewFake(FakeReply{Chunks: []string{"a", "b", "c"}, Delay: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	s, err := f.Stream(ctx, Request{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if !s.Next() {
		t.Fatal("no first chunk")
	}
	cancel()
	for s.Next() {
	}
	if !errors.Is(s.Err(), ErrCancelled) {
		t.Errorf("Err = %v, want ErrCancelled", s.Err())
	}
}

func TestFakeStreamError(t *testing.T) {
	boom := errors.New("boom")
	f := NewFake(FakeReply{Chunks: []string{"a"}, Err: boom})
	s, _ := f.Stream(context.Background(), Request{})
	if _, err := Collect(s); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
