package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// readlineWriter wraps log output to work with readline
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = os.Stderr.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// Global readline writer for log output
var rlWriter = &readlineWriter{}

// formatDrive renders a drive command for console output
func formatDrive(cmd DriveCommand) string {
	return fmt.Sprintf("L=%+.3f R=%+.3f", cmd.Left, cmd.Right)
}

// printStatus shows the shared state as the publish loop sees it
func printStatus(cfg Config, state *CommandState) {
	target, current, lastUpdate := state.Snapshot()
	age := time.Since(lastUpdate)

	fmt.Printf("target:  %s\n", formatDrive(target))
	fmt.Printf("current: %s\n", formatDrive(current))
	if age > cfg.CommandTimeout() {
		fmt.Printf("last command: %v ago (STALE, watchdog active)\n", age.Round(time.Millisecond))
	} else {
		fmt.Printf("last command: %v ago\n", age.Round(time.Millisecond))
	}
}

// handleConsoleCommand processes one console command line.
// Returns true when watch mode should be toggled.
func handleConsoleCommand(cmd string, cfg Config, state *CommandState) (toggleWatch bool) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "status":
		printStatus(cfg, state)

	case "drive":
		if len(parts) != 3 {
			log.Println("Usage: drive <left> <right>")
			return false
		}
		left, errL := strconv.ParseFloat(parts[1], 64)
		right, errR := strconv.ParseFloat(parts[2], 64)
		if errL != nil || errR != nil {
			log.Println("drive: left and right must be numbers")
			return false
		}
		// Injected commands take the same path as broker deliveries, so
		// they are shaped and watchdog-guarded like any other command
		state.SetTarget(DriveCommand{Left: left, Right: right}, time.Now())
		log.Printf("Injected drive command %s\n", formatDrive(DriveCommand{Left: left, Right: right}))

	case "stop":
		state.SetTarget(DriveCommand{}, time.Now())
		log.Println("Target zeroed, ramping to stop")

	case "watch":
		return true

	case "help":
		fmt.Println("Commands:")
		fmt.Println("  status            - Show target, current and command age")
		fmt.Println("  drive <l> <r>     - Inject a drive command (shaped like any other)")
		fmt.Println("  stop              - Zero the target (slew-limited stop)")
		fmt.Println("  watch             - Toggle periodic status output")
		fmt.Println("  help              - Show this help")

	default:
		log.Printf("Unknown command: %s (try 'help')", parts[0])
	}
	return false
}

// readlineLoop runs the readline loop, sending commands to the channel
func readlineLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	rl *readline.Instance,
	commandChan chan<- string,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel() // Ctrl+C pressed, shutdown the app
			return
		}
		if err != nil {
			return // EOF or other error
		}
		line = strings.TrimSpace(line)
		if line != "" {
			commandChan <- line
		}
	}
}

// getHistoryFilePath returns the path for console history file
func getHistoryFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // No history if we can't find home
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	drivectlCache := filepath.Join(cacheDir, "drivectl")
	// Create directory if it doesn't exist
	_ = os.MkdirAll(drivectlCache, 0750)
	return filepath.Join(drivectlCache, "console_history")
}

// consoleWorker provides interactive inspection and command injection
func consoleWorker(ctx context.Context, cancel context.CancelFunc, cfg Config, state *CommandState) {
	// Create readline instance with prompt and persistent history
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "drivectl> ",
		HistoryFile: getHistoryFilePath(),
	})
	if err != nil {
		log.Printf("Console worker: readline init failed: %v", err)
		return
	}
	defer func() {
		_ = rl.Close()
		rlWriter.rl = nil // Clear readline reference on exit
	}()

	// Redirect log output through readline-aware writer
	rlWriter.rl = rl
	log.SetOutput(rlWriter)

	log.Println("Console worker started (type 'help' for commands)")

	commandChan := make(chan string, 10)
	go readlineLoop(ctx, cancel, rl, commandChan)

	watchTicker := time.NewTicker(time.Second)
	watchTicker.Stop()
	watching := false

	for {
		select {
		case cmd := <-commandChan:
			if handleConsoleCommand(cmd, cfg, state) {
				watching = !watching
				if watching {
					watchTicker.Reset(time.Second)
					log.Println("Watch on")
				} else {
					watchTicker.Stop()
					log.Println("Watch off")
				}
			}

		case <-watchTicker.C:
			target, current, _ := state.Snapshot()
			rl.Clean()
			fmt.Printf("target %s | current %s\n", formatDrive(target), formatDrive(current))
			rl.Refresh()

		case <-ctx.Done():
			log.Println("Console worker stopped")
			return
		}
	}
}
