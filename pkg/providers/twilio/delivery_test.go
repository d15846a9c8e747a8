package twilio

import (
	"context"
	"errors"
	"testing"

	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	calls int
	fail  int
	last  *api.CreateMessageParams
}

func (f *fakeCreator) CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error) {
	f.calls++
	f.last = params
	if f.calls <= f.fail {
		return nil, errors.New("transient")
	}
	sid := "SM123"
	return &api.ApiV2010Message{Sid: &sid}, nil
}

func TestSendRequiresCredentials(t *testing.T) {
	s := NewSender(Config{From: "+15550001111"})
	if err := s.Send(context.Background(), "+15552223333", "hola"); err == nil {
		t.Fatalf("expected credential error")
	}
}

func TestSendSetsMessageParams(t *testing.T) {
	fake := &fakeCreator{}
	s := NewSender(Config{AccountSID: "AC1", AuthToken: "tok", From: "+15550001111"})
	s.client = fake

	if err := s.Send(context.Background(), "+15552223333", "hola"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.last == nil || fake.last.To == nil || *fake.last.To != "+15552223333" {
		t.Fatalf("to not set: %+v", fake.last)
	}
	if fake.last.Body == nil || *fake.last.Body != "hola" {
		t.Fatalf("body not set: %+v", fake.last)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	fake := &fakeCreator{fail: 2}
	s := NewSender(Config{AccountSID: "AC1", AuthToken: "tok", From: "+15550001111", MaxRetries: 3})
	s.client = fake

	if err := s.Send(context.Background(), "+15552223333", "hola"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestSendStopsWhenContextCanceled(t *testing.T) {
	fake := &fakeCreator{fail: 10}
	s := NewSender(Config{AccountSID: "AC1", AuthToken: "tok", From: "+15550001111", MaxRetries: 5})
	s.client = fake

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "+15552223333", "hola"); err == nil {
		t.Fatalf("expected context error")
	}
}
