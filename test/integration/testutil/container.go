// Package testutil manages the containers the integration suites run against.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ContainerConfig describes a container to start
type ContainerConfig struct {
	// Name is used in log lines only
	Name         string
	Image        string
	ExposedPorts []string
	Cmd          []string
	Env          map[string]string
	WaitStrategy wait.Strategy

	// StartupTimeout bounds each start attempt (default 3m)
	StartupTimeout time.Duration
	// MaxRetries is the number of start attempts (default 3)
	MaxRetries int
	// RetryDelay grows linearly with the attempt number (default 1s)
	RetryDelay time.Duration
}

func (c *ContainerConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "container"
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 3 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
}

// SharedContainer is a container started once in TestMain and reused by
// every test of the suite.
type SharedContainer struct {
	Container testcontainers.Container
	Name      string
	Host      string
	// Ports maps port specs ("6443/tcp") to the mapped host port
	Ports map[string]string
}

// GetEndpoint returns host:port for portSpec, or "" when it was not exposed
func (s *SharedContainer) GetEndpoint(portSpec string) string {
	port, ok := s.Ports[portSpec]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.Host, port)
}

// StartSharedContainer starts the container, retrying failed attempts.
// The caller owns cleanup.
func StartSharedContainer(config ContainerConfig) (*SharedContainer, error) {
	config.applyDefaults()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        config.Image,
		ExposedPorts: config.ExposedPorts,
		Cmd:          config.Cmd,
		Env:          config.Env,
		WaitingFor:   config.WaitStrategy,
	}

	var container testcontainers.Container
	var err error
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := config.RetryDelay * time.Duration(attempt)
			println(fmt.Sprintf("   Retrying %s container (%d/%d) in %v...", config.Name, attempt, config.MaxRetries, delay))
			time.Sleep(delay)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, config.StartupTimeout)
		container, err = testcontainers.GenericContainer(attemptCtx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		cancel()
		if err == nil {
			break
		}

		// A container that started but failed its wait strategy is terminated before retrying
		if container != nil {
			terminate(container, config.Name)
			container = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container after %d attempts: %w", config.Name, config.MaxRetries, err)
	}

	shared := &SharedContainer{Container: container, Name: config.Name, Ports: make(map[string]string)}
	if shared.Host, err = container.Host(ctx); err != nil {
		shared.Cleanup()
		return nil, fmt.Errorf("failed to get %s container host: %w", config.Name, err)
	}
	for _, spec := range config.ExposedPorts {
		port, err := container.MappedPort(ctx, nat.Port(spec))
		if err != nil {
			shared.Cleanup()
			return nil, fmt.Errorf("failed to get mapped port %s of %s container: %w", spec, config.Name, err)
		}
		shared.Ports[spec] = port.Port()
	}
	return shared, nil
}

// Cleanup terminates the container, falling back to the container CLI
func (s *SharedContainer) Cleanup() {
	if s == nil || s.Container == nil {
		return
	}
	println(fmt.Sprintf("Cleaning up shared %s container...", s.Name))
	terminate(s.Container, s.Name)
}

func terminate(container testcontainers.Container, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := container.Terminate(ctx); err != nil {
		println(fmt.Sprintf("Warning: failed to terminate %s container: %v", name, err))
		forceRemove(container.GetContainerID())
	}
}

// forceRemove tries docker, then podman
func forceRemove(containerID string) {
	if containerID == "" {
		return
	}
	for _, runtime := range []string{"docker", "podman"} {
		if err := exec.Command(runtime, "rm", "-f", containerID).Run(); err == nil {
			return
		}
	}
	println(fmt.Sprintf("Warning: could not remove container %s, run: docker rm -f %s", containerID, containerID))
}
