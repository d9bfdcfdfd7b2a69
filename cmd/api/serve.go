package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 10 * time.Second

// serve runs srv until ctx ends, then stops the scheduler, drains the server
// and calls flush. It returns only after flush has finished.
func serve(ctx context.Context, srv *http.Server, scheduler *cron.Cron, flush func(context.Context) error) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		<-scheduler.Stop().Done()
		srv.Shutdown(shutdownCtx)
		if flush != nil {
			flush(shutdownCtx)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
