package main

import (
	"bytes"
	"testing"
	"time"

	granular "github.com/cbegin/granular-go"
	"github.com/pkg/errors"
)

func TestApplyKey(t *testing.T) {
	base := granular.DefaultParams()
	base.StartPos = 500
	for _, tc := range []struct {
		key  byte
		ok   bool
		want func(granular.Params) bool
	}{
		{']', true, func(p granular.Params) bool { return p.GrainSizeMs == 55 }},
		{'[', true, func(p granular.Params) bool { return p.GrainSizeMs == 45 }},
		{'.', true, func(p granular.Params) bool { return p.StartPos == 550 }},
		{',', true, func(p granular.Params) bool { return p.StartPos == 450 }},
		{'S', true, func(p granular.Params) bool { return p.SprayMs == 5 }},
		{'x', true, func(p granular.Params) bool { return p.MidiPitch == 49 }},
		{'k', false, func(p granular.Params) bool { return p == base }},
	} {
		got, ok := applyKey(base, tc.key, 1000)
		if ok != tc.ok || !tc.want(got) {
			t.Fatalf("key %q: ok=%v params=%+v", tc.key, ok, got)
		}
	}
}

func TestReportEventsStopsOnDone(t *testing.T) {
	events := make(chan granular.Event)
	done := make(chan struct{})
	finished := make(chan struct{})
	var out bytes.Buffer
	go func() {
		reportEvents(events, done, &out)
		close(finished)
	}()

	events <- granular.Event{Kind: granular.EventGateOn}
	events <- granular.Event{Kind: granular.EventRejected, Err: errors.New("start out of range")}
	close(done)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("reportEvents kept running after done was closed")
	}
	if got := out.String(); got != "rejected: start out of range\r\n" {
		t.Fatalf("output = %q", got)
	}
}
