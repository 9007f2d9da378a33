package launcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	inspectorPort = nat.Port("9229/tcp")
	scriptName    = "main.js"
)

// Instance is a debuggee running in a container.
type Instance struct {
	ContainerID string
	SessionID   string
	Runtime     string
	Port        string
	DebuggerURL string
	ScriptDir   string
}

// Pool launches Node debuggees from one image.
type Pool struct {
	client     *client.Client
	runtime    string
	image      string
	scriptDir  string
	httpClient *http.Client
}

// NewPool creates a pool for runtime backed by image. Scripts are staged
// under scriptDir, one directory per session.
func NewPool(runtime, image, scriptDir string) (*Pool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	absDir, err := filepath.Abs(scriptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script directory: %w", err)
	}

	return &Pool{
		client:     cli,
		runtime:    runtime,
		image:      image,
		scriptDir:  absDir,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}, nil
}

// Runtime returns the runtime name the pool serves.
func (p *Pool) Runtime() string { return p.runtime }

// Image returns the pool's docker image.
func (p *Pool) Image() string { return p.image }

// LaunchOptions describes a debuggee to start.
type LaunchOptions struct {
	SessionID string
	Script    string
}

// Launch starts script suspended on its first line and waits until the
// inspector reports a debugger URL.
func (p *Pool) Launch(ctx context.Context, opts LaunchOptions) (*Instance, error) {
	dir := filepath.Join(p.scriptDir, opts.SessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, scriptName), []byte(opts.Script), 0644); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	containerConfig := &container.Config{
		Image: p.image,
		Cmd:   []string{"node", "--inspect-brk=0.0.0.0:9229", "/app/" + scriptName},
		Labels: map[string]string{
			"session-id": opts.SessionID,
			"runtime":    p.runtime,
			"managed-by": "devtools-inspector",
		},
		ExposedPorts: nat.PortSet{
			inspectorPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			inspectorPort: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: "0",
				},
			},
		},
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   dir,
				Target:   "/app",
				ReadOnly: true,
			},
		},
	}

	resp, err := p.client.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil,
		nil,
		fmt.Sprintf("inspector-%s", shortID(opts.SessionID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	bindings := inspect.NetworkSettings.Ports[inspectorPort]
	if len(bindings) == 0 {
		p.remove(resp.ID)
		return nil, fmt.Errorf("container %s has no inspector port binding", shortID(resp.ID))
	}
	port := bindings[0].HostPort

	debuggerURL, err := p.waitForTarget(ctx, port)
	if err != nil {
		p.remove(resp.ID)
		return nil, fmt.Errorf("debuggee failed to become ready: %w", err)
	}

	return &Instance{
		ContainerID: resp.ID,
		SessionID:   opts.SessionID,
		Runtime:     p.runtime,
		Port:        port,
		DebuggerURL: debuggerURL,
		ScriptDir:   dir,
	}, nil
}

// Stop stops and removes a container.
func (p *Pool) Stop(ctx context.Context, containerID string) error {
	timeout := 5
	stopOptions := container.StopOptions{
		Timeout: &timeout,
	}

	if err := p.client.ContainerStop(ctx, containerID, stopOptions); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	return nil
}

// IsHealthy reports whether the container is still running.
func (p *Pool) IsHealthy(ctx context.Context, containerID string) bool {
	inspect, err := p.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return false
	}
	return inspect.State.Running
}

// EnsureImage pulls the pool's image unless it is already present.
func (p *Pool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == p.image {
				return nil
			}
		}
	}

	reader, err := p.client.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (p *Pool) Close() error {
	return p.client.Close()
}

func (p *Pool) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

// waitForTarget polls /json/list until the debuggee exposes a target
func (p *Pool) waitForTarget(ctx context.Context, port string) (string, error) {
	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)
	maxRetries := 40 // 20 seconds total (40 * 500ms)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		target, err := Discover(ctx, p.httpClient, baseURL)
		if err == nil {
			return target.WebSocketDebuggerURL, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return "", fmt.Errorf("no target after %d retries: %w", maxRetries, lastErr)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
