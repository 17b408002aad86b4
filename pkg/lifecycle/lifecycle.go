// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle owns process-level concerns: signal handling, shutdown
// hooks and the single-instance PID file.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

var (
	mu            sync.Mutex
	shutdownHooks []func()
	cancel        context.CancelFunc
)

func RegisterShutdownHook(hook func()) {
	mu.Lock()
	shutdownHooks = append(shutdownHooks, hook)
	mu.Unlock()
}

func RegisterContextCanceller(c context.CancelFunc) {
	mu.Lock()
	cancel = c
	mu.Unlock()
}

// HandleSignals blocks until the context ends or a termination signal
// arrives. SIGTERM and SIGINT shut the process down; SIGHUP is ignored
// beyond a log line since configuration reload is not supported yet.
func HandleSignals(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		select {
		case sig := <-stop:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				shutdown()
				return
			case syscall.SIGHUP:
				fmt.Fprintln(os.Stderr, "SIGHUP received; configuration reload is not supported")
			}
		case <-ctx.Done():
			return
		}
	}
}

// shutdown cancels the run context and fires hooks in reverse registration
// order, so dependents stop before their dependencies.
func shutdown() {
	mu.Lock()
	c := cancel
	hooks := make([]func(), len(shutdownHooks))
	copy(hooks, shutdownHooks)
	mu.Unlock()

	if c != nil {
		c()
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	os.Exit(0)
}

// EnsureSingleInstance claims the PID file or fails if another live process
// holds it. Stale files left by a crashed instance are removed.
func EnsureSingleInstance(pidPath string) error {
	if pidPath == "" {
		return fmt.Errorf("invalid PID file path")
	}

	if pidBytes, err := os.ReadFile(pidPath); err == nil {
		content := strings.TrimSpace(string(pidBytes))
		if content != "" {
			pid, err := strconv.Atoi(content)
			if err != nil {
				return fmt.Errorf("invalid PID format: %w", err)
			}
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another instance is already running (PID: %d)", pid)
				}
			}
		}
		os.Remove(pidPath)
	}

	if err := os.MkdirAll(filepath.Dir(pidPath), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	RegisterShutdownHook(func() {
		os.Remove(pidPath)
	})
	return nil
}
