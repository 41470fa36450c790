package influxdb

import (
	"errors"
	"strings"
	"testing"
)

func TestCollectErrors(t *testing.T) {
	c := &Client{connected: true}

	errorsCh := make(chan error)
	done := make(chan struct{})
	go func() {
		c.collectErrors(errorsCh)
		close(done)
	}()

	first := errors.New("bucket not found")
	errorsCh <- first
	for i := 0; i < maxKeptErrors+3; i++ {
		errorsCh <- errors.New("later failure")
	}
	close(errorsCh)
	<-done

	err := c.takeErrors()
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("takeErrors() = %v, want ErrWriteFailed", err)
	}
	if !errors.Is(err, first) {
		t.Errorf("takeErrors() = %v, want to wrap the first batch error", err)
	}
	if want := "20 batch(es) rejected"; !strings.Contains(err.Error(), want) {
		t.Errorf("takeErrors() = %q, want it to contain %q", err, want)
	}

	if err := c.takeErrors(); err != nil {
		t.Errorf("takeErrors() after take = %v, want nil", err)
	}
}

func TestTakeErrors_None(t *testing.T) {
	c := &Client{connected: true}
	if err := c.takeErrors(); err != nil {
		t.Errorf("takeErrors() = %v, want nil", err)
	}
}

func TestFlush_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.Flush(); err != nil {
		t.Errorf("Flush() on closed client = %v, want nil", err)
	}
	if err := c.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}
