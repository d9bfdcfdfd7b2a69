package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestServe_WaitsForFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	var flushed atomic.Bool
	flush := func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		flushed.Store(true)
		return nil
	}

	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, srv, cron.New(), flush) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if !flushed.Load() {
		t.Error("serve returned before flush finished")
	}
}

func TestServe_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String()}
	if err := serve(context.Background(), srv, cron.New(), nil); err == nil {
		t.Error("expected an error for an address in use")
	}
}
