package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"apphost/internal/logger"
	"apphost/internal/models"
	"apphost/internal/utils"
)

var ErrNotRunning = errors.New("process is not running")

/**
 * ProcessInstance 进程实例信息
 * @property {string} title - Display name, the resource name for launched processes
 * @property {string} command - Executable
 * @property {[]string} args - Arguments
 * @property {string} workDir - Working directory, empty inherits the launcher's
 * @property {[]string} env - Extra "KEY=VALUE" entries appended to the launcher's environment
 * @property {io.Writer} stdout - Destination of the child's stdout, nil discards
 * @property {io.Writer} stderr - Destination of the child's stderr, nil discards
 */
type ProcessInstance struct {
	Title          string
	Command        string
	Args           []string
	WorkDir        string
	Env            []string
	Stdout         io.Writer
	Stderr         io.Writer
	Status         models.RunStatus
	StartTime      time.Time
	LastExitTime   time.Time
	LastExitReason string

	onExited func(*ProcessInstance)
	process  *os.Process
	done     chan struct{}
	mutex    sync.Mutex
}

func NewProcessInstance(title, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:   title,
		Command: command,
		Args:    args,
		Status:  models.StatusExited,
	}
}

// OnExited registers a callback for exits the launcher did not ask for.
func (pi *ProcessInstance) OnExited(fn func(*ProcessInstance)) {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	pi.onExited = fn
}

func (pi *ProcessInstance) Pid() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.pid()
}

func (pi *ProcessInstance) pid() int {
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

// Done is closed when the running process exits. Nil before the first start.
func (pi *ProcessInstance) Done() <-chan struct{} {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.done
}

func (pi *ProcessInstance) GetDetail() models.ProcessDetail {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	return models.ProcessDetail{
		Title:          pi.Title,
		Command:        pi.Command,
		Args:           append([]string(nil), pi.Args...),
		WorkDir:        pi.WorkDir,
		Pid:            pi.pid(),
		Status:         pi.Status,
		StartTime:      pi.StartTime,
		LastExitTime:   pi.LastExitTime,
		LastExitReason: pi.LastExitReason,
	}
}

/**
 * StartProcess 启动进程
 * @returns {error} Error if the executable could not be started
 * @description
 * - Starts the child in its own process group
 * - A watcher goroutine records the exit and closes Done()
 * - Starting a running instance is a no-op
 */
func (pi *ProcessInstance) StartProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s", strings.TrimSpace(pi.Command+" "+strings.Join(pi.Args, " ")))

	cmd := exec.Command(pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	cmd.Env = append(os.Environ(), pi.Env...)
	cmd.Stdout = pi.Stdout
	cmd.Stderr = pi.Stderr
	utils.SetNewPG(cmd)

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.process = cmd.Process
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()
	pi.done = make(chan struct{})

	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.pid())
	go pi.watchProcess(cmd, pi.done)
	return nil
}

/**
 * StopProcess 停止进程
 * @param {time.Duration} grace - How long to wait after SIGTERM before killing
 * @returns {error} ErrNotRunning, or the signal error
 * @description
 * - Sends SIGTERM to the process group and waits up to grace
 * - Kills the group if it is still alive after grace
 * - If the kill fails, waits at most another grace for the exit
 */
func (pi *ProcessInstance) StopProcess(grace time.Duration) error {
	pi.mutex.Lock()
	if pi.Status != models.StatusRunning || pi.process == nil {
		pi.mutex.Unlock()
		return ErrNotRunning
	}
	pi.Status = models.StatusStopped
	process := pi.process
	done := pi.done
	pi.mutex.Unlock()

	if err := utils.TerminateProcess(process); err != nil {
		logger.Warnf("Failed to terminate process '%s' (PID: %d): %v", pi.Title, process.Pid, err)
	}
	select {
	case <-done:
		logger.Infof("Process '%s' (PID: %d) stopped", pi.Title, process.Pid)
		return nil
	case <-time.After(grace):
	}

	logger.Warnf("Process '%s' (PID: %d) did not exit within %v, killing it", pi.Title, process.Pid, grace)
	if err := utils.KillProcess(process); err != nil {
		select {
		case <-done:
			return nil
		case <-time.After(grace):
		}
		return fmt.Errorf("kill process '%s': %w", pi.Title, err)
	}
	<-done
	return nil
}

func (pi *ProcessInstance) watchProcess(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	pi.mutex.Lock()
	pi.LastExitTime = time.Now()
	stoppedByUs := pi.Status == models.StatusStopped
	switch {
	case stoppedByUs:
		pi.LastExitReason = "stopped by launcher"
	case err != nil:
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("exited with error: %v", err)
		logger.Errorf("Process '%s' (PID: %d) exited with error: %v", pi.Title, pi.pid(), err)
	default:
		pi.Status = models.StatusExited
		pi.LastExitReason = "exited normally"
		logger.Infof("Process '%s' (PID: %d) exited normally", pi.Title, pi.pid())
	}
	pi.process = nil
	onExited := pi.onExited
	close(done)
	pi.mutex.Unlock()

	if !stoppedByUs && onExited != nil {
		onExited(pi)
	}
}
