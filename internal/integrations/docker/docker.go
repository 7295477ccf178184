package docker

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"
)

type Docker interface {
	ContainerRunning(ctx context.Context, name string) (bool, error)
	Exec(ctx context.Context, params ExecParams) error
}

type ExecParams struct {
	ContainerName string
	Cmd           []string
	Env           []string
	Stdout        io.Writer
}

type engineClient struct {
	api client.APIClient
}

func NewClient() (Docker, error) {
	c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}
	return &engineClient{api: c}, nil
}

func (d *engineClient) ContainerRunning(ctx context.Context, name string) (bool, error) {
	info, err := d.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to inspect container %s", name)
	}
	return info.State != nil && info.State.Running, nil
}

// Exec runs a command in the named container, streaming its stdout to
// params.Stdout. The attached stream multiplexes stdout and stderr;
// stderr is captured separately and returned as part of the error when
// the command exits non-zero.
func (d *engineClient) Exec(ctx context.Context, params ExecParams) error {
	execID, err := d.api.ContainerExecCreate(ctx, params.ContainerName, container.ExecOptions{
		Cmd:          params.Cmd,
		Env:          params.Env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create exec in container %s", params.ContainerName)
	}

	hr, err := d.api.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to attach to exec")
	}
	defer hr.Close()

	stdout := params.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	var stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(stdout, &stderr, hr.Reader); err != nil {
		return errors.Wrap(err, "failed to read exec output")
	}

	// The stream closing does not guarantee the process is reaped yet;
	// poll until the daemon reports it stopped before trusting the
	// exit code.
	for {
		inspect, err := d.api.ContainerExecInspect(ctx, execID.ID)
		if err != nil {
			return errors.Wrap(err, "failed to inspect exec")
		}
		if !inspect.Running {
			if inspect.ExitCode != 0 {
				return errors.Errorf("exec exited with code %d: %s", inspect.ExitCode, stderr.String())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
