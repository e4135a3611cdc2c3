// Package docker starts throwaway service containers for integration tests.
package docker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Container is a detached `docker run --rm` service publishing one port.
type Container struct {
	Name     string
	Image    string
	HostPort string
	Port     string
	Env      map[string]string
}

// Available reports whether the docker CLI is on PATH.
func Available() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker executable not found: %w", err)
	}
	return nil
}

// Start replaces any stale container of the same name and runs a new one.
func (c Container) Start() error {
	if err := Available(); err != nil {
		return err
	}
	_ = c.Stop()

	args := []string{"run", "-d", "--rm", "--name", c.Name, "-p", c.HostPort + ":" + c.Port}
	for k, v := range c.Env {
		args = append(args, "-e", k+"="+v)
	}
	return run(append(args, c.Image)...)
}

// Stop removes the container. A container that is already gone is not an error.
func (c Container) Stop() error {
	output, err := exec.Command("docker", "stop", c.Name).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

// Wait polls ready every interval until it succeeds or timeout elapses.
func Wait(timeout, interval time.Duration, ready func(ctx context.Context) error) error {
	deadline := time.Now().Add(timeout)
	var last error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), interval*2)
		last = ready(ctx)
		cancel()
		if last == nil {
			return nil
		}
		time.Sleep(interval)
	}
	if last == nil {
		last = errors.New("timed out")
	}
	return fmt.Errorf("container not ready after %v: %w", timeout, last)
}

func run(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}
