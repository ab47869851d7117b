//go:build unix

package main

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestRunServeUntilInterrupted(t *testing.T) {
	cfg := simRunConfig()
	cfg.Web.Serve = true

	done := make(chan int, 1)
	go func() { done <- run(cfg) }()

	select {
	case code := <-done:
		t.Fatalf("run returned %d while serving", code)
	case <-time.After(500 * time.Millisecond):
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	select {
	case code := <-done:
		if code != 130 {
			t.Errorf("run = %d, want 130", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after SIGINT")
	}
}
