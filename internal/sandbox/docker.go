package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
)

// DockerManager provisions isolated Docker-backed sessions.
type DockerManager struct {
	client *client.Client
	config Config
}

// NewDockerManager creates a session manager backed by the local Docker
// daemon.
func NewDockerManager(config Config) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Verify Docker daemon is accessible
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Docker daemon not accessible: %w", err)
	}

	return &DockerManager{client: cli, config: config}, nil
}

// Create provisions one container for a run: workspace bind mount, resource
// limits, long-lived so the agent can run many commands against it. The
// session TTL is armed separately via SetTimeout.
func (m *DockerManager) Create(ctx context.Context, template string) (Session, error) {
	img := GetImage(template, m.config)
	if err := m.ensureImage(ctx, img); err != nil {
		return nil, fmt.Errorf("failed to ensure image %s: %w", img, err)
	}

	workspace, err := os.MkdirTemp("", "forge-workspace-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace dir: %w", err)
	}

	containerConfig := &container.Config{
		Image:      img,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: "/workspace",
		Env:        []string{"HOME=/tmp"},
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: workspace,
				Target: "/workspace",
			},
		},
		Resources: container.Resources{
			Memory:   parseMemory(m.config.Memory),
			NanoCPUs: parseCPU(m.config.CPU) * 1e9,
			Ulimits: []*units.Ulimit{
				{Name: "nofile", Soft: 4096, Hard: 4096},
			},
		},
		SecurityOpt: []string{"no-new-privileges"},
		AutoRemove:  false,
	}

	createResp, err := m.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		_ = os.RemoveAll(workspace)
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := m.client.ContainerStart(ctx, createResp.ID, container.StartOptions{}); err != nil {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.client.ContainerRemove(removeCtx, createResp.ID, container.RemoveOptions{Force: true})
		_ = os.RemoveAll(workspace)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return &dockerSession{
		client:      m.client,
		config:      m.config,
		containerID: createResp.ID,
		workspace:   workspace,
	}, nil
}

// ensureImage checks if the image exists locally, and pulls it if not.
func (m *DockerManager) ensureImage(ctx context.Context, imageName string) error {
	_, _, err := m.client.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}

	reader, err := m.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// Drain the pull output (required for pull to complete)
	_, _ = io.Copy(io.Discard, reader)

	return nil
}

// dockerSession is one live container plus its bind-mounted workspace.
type dockerSession struct {
	client      *client.Client
	config      Config
	containerID string
	workspace   string

	mu     sync.Mutex
	ttl    *time.Timer
	closed bool
}

func (s *dockerSession) ID() string { return s.containerID }

func (s *dockerSession) WorkspaceDir() string { return s.workspace }

// SetTimeout arms the session TTL. Expiry tears the container down; the
// orchestration loop is not interrupted, its tool calls simply start
// failing and surface as tool-error strings.
func (s *dockerSession) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl != nil {
		s.ttl.Stop()
	}
	s.ttl = time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
}

func (s *dockerSession) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// RunCommand executes a shell command inside the container, streaming and
// capturing both output streams. Non-zero exit codes and timeouts are
// reported through the error while the captured Result is still returned,
// so partial output is never lost.
func (s *dockerSession) RunCommand(ctx context.Context, cmd string, onStdout, onStderr StreamFunc) (Result, error) {
	if s.expired() {
		return Result{}, fmt.Errorf("sandbox session %s has expired", shortID(s.containerID))
	}

	timeout := s.config.CmdTimeout
	if timeout <= 0 {
		timeout = defaultCmdTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execResp, err := s.client.ContainerExecCreate(execCtx, s.containerID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", cmd},
		WorkingDir:   "/workspace",
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := s.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return Result{}, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attach.Close()

	stdout, stderr := demuxStreams(attach.Reader, onStdout, onStderr)

	if execCtx.Err() == context.DeadlineExceeded {
		return Result{
			Stdout:   stdout,
			Stderr:   stderr,
			Code:     1,
			TimedOut: true,
		}, fmt.Errorf("command timed out after %s", timeout)
	}

	inspect, err := s.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return Result{Stdout: stdout, Stderr: stderr}, fmt.Errorf("failed to inspect exec: %w", err)
	}

	result := Result{Stdout: stdout, Stderr: stderr, Code: inspect.ExitCode}
	if inspect.ExitCode != 0 {
		return result, fmt.Errorf("command exited with code %d", inspect.ExitCode)
	}
	return result, nil
}

// WriteFile writes through the bind-mounted workspace.
func (s *dockerSession) WriteFile(_ context.Context, path, content string) error {
	if s.expired() {
		return fmt.Errorf("sandbox session %s has expired", shortID(s.containerID))
	}

	hostPath, err := s.hostPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(hostPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", path, err)
	}
	if err := os.WriteFile(hostPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads through the bind-mounted workspace, so it observes files
// the agent's commands created as well as tool-written ones.
func (s *dockerSession) ReadFile(_ context.Context, path string) (string, error) {
	if s.expired() {
		return "", fmt.Errorf("sandbox session %s has expired", shortID(s.containerID))
	}

	hostPath, err := s.hostPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Host resolves the container's address for a published port.
func (s *dockerSession) Host(ctx context.Context, port int) (string, error) {
	inspect, err := s.client.ContainerInspect(ctx, s.containerID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}
	if inspect.NetworkSettings == nil || inspect.NetworkSettings.IPAddress == "" {
		return "", fmt.Errorf("container %s has no network address", shortID(s.containerID))
	}
	return fmt.Sprintf("%s:%d", inspect.NetworkSettings.IPAddress, port), nil
}

// Close tears down the container and workspace. Idempotent.
func (s *dockerSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.ttl != nil {
		s.ttl.Stop()
	}
	s.mu.Unlock()

	err := s.client.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true})
	if rmErr := os.RemoveAll(s.workspace); rmErr != nil && err == nil {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("failed to tear down session %s: %w", shortID(s.containerID), err)
	}
	return nil
}

// hostPath maps a workspace-relative path to the bind mount, rejecting
// escapes.
func (s *dockerSession) hostPath(path string) (string, error) {
	rel := strings.TrimPrefix(path, "/workspace/")
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return filepath.Join(s.workspace, clean), nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// demuxStreams separates a multiplexed Docker stream into stdout and
// stderr, invoking the optional callbacks per chunk.
// Frame format: [STREAM_TYPE (1 byte)][RESERVED (3 bytes)][SIZE (4 bytes, big-endian)][payload]
func demuxStreams(reader io.Reader, onStdout, onStderr StreamFunc) (stdout, stderr string) {
	var stdoutB, stderrB strings.Builder

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(reader, header); err != nil {
			break
		}

		streamType := header[0]
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size <= 0 || size > 10*1024*1024 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(reader, payload); err != nil {
			break
		}

		chunk := string(payload)
		switch streamType {
		case 2:
			stderrB.WriteString(chunk)
			if onStderr != nil {
				onStderr(chunk)
			}
		default:
			stdoutB.WriteString(chunk)
			if onStdout != nil {
				onStdout(chunk)
			}
		}
	}

	return stdoutB.String(), stderrB.String()
}

// parseMemory converts a human-readable memory limit to bytes.
func parseMemory(memory string) int64 {
	if memory == "" {
		return 0
	}
	bytes, err := units.RAMInBytes(memory)
	if err != nil {
		return 0
	}
	return bytes
}

// parseCPU converts a CPU count string to an int64 core count.
func parseCPU(cpu string) int64 {
	if cpu == "" {
		return 0
	}
	n, err := strconv.ParseInt(cpu, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
