package wakelock

import (
	"fmt"
	"os/exec"
	"sync"
)

// Systemd держит блокировку сна через дочерний процесс systemd-inhibit
type Systemd struct {
	Who string
	Why string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (s *Systemd) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}
	cmd := exec.Command("systemd-inhibit",
		"--what=sleep:idle",
		"--who="+s.Who,
		"--why="+s.Why,
		"--mode=block",
		"sleep", "infinity")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("не удалось запустить systemd-inhibit: %v", err)
	}
	s.cmd = cmd
	return nil
}

func (s *Systemd) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	cmd := s.cmd
	s.cmd = nil
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("не удалось остановить systemd-inhibit: %v", err)
	}
	// процесс убит, код завершения не интересен
	_ = cmd.Wait()
	return nil
}
