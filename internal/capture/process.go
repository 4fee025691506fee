package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// Process is the control surface of a running encoder.
type Process interface {
	// Suspend and Resume freeze and continue the process.
	Suspend() error
	Resume() error
	// Interrupt asks the encoder to finish its files and exit.
	Interrupt() error
	// Terminate stops it without waiting for a clean shutdown.
	Terminate() error
	// Wait blocks until exit.
	Wait() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
}

// Launcher starts an encoder for a plan with its combined output going to log.
type Launcher interface {
	Launch(ctx context.Context, plan *Plan, log *os.File) (Process, error)
}

// FFmpeg launches the real encoder binary.
type FFmpeg struct {
	Binary string
}

// Launch starts the encoder. It is not bound to ctx: the recording outlives
// the call and ends through Interrupt or Terminate.
func (f FFmpeg) Launch(ctx context.Context, plan *Plan, log *os.File) (Process, error) {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.Command(bin, plan.Args...)
	cmd.Stdout = log
	cmd.Stderr = log
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	handle, err := process.NewProcessWithContext(ctx, int32(cmd.Process.Pid))
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("attach to %s (pid %d): %w", bin, cmd.Process.Pid, err)
	}
	p := &encoderProcess{cmd: cmd, handle: handle, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type encoderProcess struct {
	cmd    *exec.Cmd
	handle *process.Process

	done chan struct{}
	err  error
}

func (p *encoderProcess) running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *encoderProcess) Suspend() error {
	if !p.running() {
		return nil
	}
	return p.handle.Suspend()
}

func (p *encoderProcess) Resume() error {
	if !p.running() {
		return nil
	}
	return p.handle.Resume()
}

func (p *encoderProcess) Interrupt() error {
	if !p.running() {
		return nil
	}
	return p.handle.SendSignal(syscall.SIGINT)
}

func (p *encoderProcess) Terminate() error {
	if !p.running() {
		return nil
	}
	return p.handle.Terminate()
}

func (p *encoderProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *encoderProcess) Done() <-chan struct{} { return p.done }
