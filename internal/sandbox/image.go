package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ImageBuilder builds a container image from a workspace directory
// (Dockerfile plus the unpacked submission) via the configured build tool's
// quiet buildx output: a successful build prints exactly the image ref to
// stdout, any stderr output is treated as failure.
type ImageBuilder struct {
	tool      string
	directory string
}

// NewImageBuilder returns a builder for the given build tool ("docker",
// "podman", ...) rooted at directory.
func NewImageBuilder(tool, directory string) *ImageBuilder {
	return &ImageBuilder{tool: tool, directory: directory}
}

// Build invokes "<tool> buildx build -q <directory>" and returns the
// resulting Image on success.
func (b *ImageBuilder) Build(ctx context.Context) (*Image, error) {
	cmd := exec.CommandContext(ctx, b.tool, "buildx", "build", "-q", b.directory)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("building image: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("building image: %w", err)
	}

	if stderr.Len() > 0 {
		return nil, fmt.Errorf("building image: %s", strings.TrimSpace(stderr.String()))
	}

	imageID := strings.TrimSpace(stdout.String())
	if imageID == "" {
		return nil, fmt.Errorf("building image: empty image id")
	}

	return &Image{tool: b.tool, imageID: imageID}, nil
}

// Image is a built, runnable container image.
type Image struct {
	tool    string
	imageID string
}

// Exec runs the image with stdin piped in, returning its stdout. A nil
// timeout runs to completion; a non-nil timeout kills the whole process
// group (not just the docker client process, which would otherwise leave
// the container running) and reports timedOut=true.
func (img *Image) Exec(ctx context.Context, stdin string, timeout *time.Duration) (stdout string, timedOut bool, err error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout != nil {
		runCtx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	cmd := exec.Command(img.tool, "run", "-i", img.imageID)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = strings.NewReader(stdin)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return "", false, fmt.Errorf("starting container: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-runCtx.Done():
		if pgid, pgErr := syscall.Getpgid(cmd.Process.Pid); pgErr == nil {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			_ = cmd.Process.Kill()
		}
		<-done
		return "", true, nil
	case waitErr := <-done:
		if waitErr != nil {
			return "", false, fmt.Errorf("running container %s: %w", img.imageID, waitErr)
		}
		if errBuf.Len() > 0 {
			return "", false, fmt.Errorf("running container %s: %s", img.imageID, strings.TrimSpace(errBuf.String()))
		}
		return outBuf.String(), false, nil
	}
}

// Close prunes stopped containers and removes this image, mirroring the
// teardown the original implementation disabled pending a safe way to
// prune only this job's containers — scoped here to "docker container
// prune -f" plus an rmi of this specific image id, which is safe to run
// concurrently with other jobs' images.
func (img *Image) Close(ctx context.Context) error {
	pruneCmd := exec.CommandContext(ctx, img.tool, "container", "prune", "-f")
	_ = pruneCmd.Run()

	rmCmd := exec.CommandContext(ctx, img.tool, "rmi", img.imageID)
	var stderr bytes.Buffer
	rmCmd.Stderr = &stderr
	if err := rmCmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("removing image %s: %s", img.imageID, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("removing image %s: %w", img.imageID, err)
	}
	return nil
}
