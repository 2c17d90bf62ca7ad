package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const daemonChildEnv = "WALLETD_DAEMON_CHILD"

func daemonCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "daemon",
		Short: "Background process management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start walletd as daemon",
		Run: func(cmd *cobra.Command, args []string) {
			runDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Run: func(cmd *cobra.Command, args []string) {
			stopDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Restarting walletd...")
			stopDaemon(pidFile)
			time.Sleep(2 * time.Second)
			runDaemon(pidFile)
		},
	})

	return cmd
}

func runDaemon(pidFilePath string) {
	// Check internal execution via env var (prevent infinite recursion)
	if os.Getenv(daemonChildEnv) == "1" {
		runServer()
		return
	}

	if isRunning(pidFilePath) {
		fmt.Println("walletd is already running")
		return
	}

	executable, err := os.Executable()
	if err != nil {
		// logger is not initialized in the parent
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"daemon", "start"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), daemonChildEnv+"=1")
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Start in a new process group
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	if err := writePidFile(pidFilePath, cmd.Process.Pid); err != nil {
		fmt.Printf("Failed to write PID file: %v\n", err)
		cmd.Process.Kill()
		os.Exit(1)
	}

	fmt.Printf("walletd started as daemon with PID %d\n", cmd.Process.Pid)
}

func stopDaemon(pidFilePath string) {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		fmt.Println("walletd is not running or PID file not found")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Process not found")
		removePidFile(pidFilePath)
		return
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to stop process: %v\n", err)
		return
	}

	fmt.Printf("Stopping walletd (PID: %d)...\n", pid)
	removePidFile(pidFilePath)
}

func showStatus(pidFilePath string) {
	fmt.Printf("PID file path: %s\n", pidFilePath)

	if isRunning(pidFilePath) {
		pid, _ := readPidFile(pidFilePath)
		fmt.Printf("walletd is running (PID: %d)\n", pid)
		return
	}

	fmt.Println("walletd is not running")
	if _, err := os.Stat(pidFilePath); err == nil {
		fmt.Println("PID file exists but process is not running - cleaning up")
		removePidFile(pidFilePath)
	}
}

func isRunning(pidFilePath string) bool {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// signal 0 only checks liveness (Unix)
	return process.Signal(syscall.Signal(0)) == nil
}

func readPidFile(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writePidFile(pidFilePath string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath, []byte(strconv.Itoa(pid)), 0644)
}

func removePidFile(pidFilePath string) {
	os.Remove(pidFilePath)
}
