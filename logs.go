package servicectl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// Log source labels. Every reported line carries its origin because
// the daemon may write operational detail only to its own file while
// the system log sees just supervision events.
const (
	// LogSourceFile is the daemon's own plain-file log
	LogSourceFile = "file"
	// LogSourceSystem is the native system log (journal, unified log,
	// event log)
	LogSourceSystem = "system"
)

// LogLine is one normalized log line from any source.
type LogLine struct {
	// Time is the parsed timestamp; zero when the source line had none
	Time time.Time
	// Source labels where the line came from
	Source string
	// Text is the line content
	Text string
}

// String renders the line with its source label.
func (l LogLine) String() string {
	if l.Time.IsZero() {
		return fmt.Sprintf("[%s] %s", l.Source, l.Text)
	}
	return fmt.Sprintf("[%s] %s %s", l.Source, l.Time.Format(time.RFC3339), l.Text)
}

// Reporter normalizes the daemon's heterogeneous log sources into one
// chronological, source-labeled stream.
type Reporter struct {
	cfg *Config
	run runner
}

// NewReporter builds a Reporter for the configured platform.
func NewReporter(cfg *Config) *Reporter {
	return &Reporter{cfg: cfg, run: newExecRunner()}
}

// Tail returns up to n recent lines per source, merged chronologically.
func (r *Reporter) Tail(ctx context.Context, n int) ([]LogLine, error) {
	if n <= 0 {
		n = 50
	}

	var lines []LogLine

	fileLines, err := tailFile(r.cfg.Paths.DaemonLogPath(), n)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading daemon log: %w", err)
	}
	lines = append(lines, fileLines...)

	sysLines, err := r.systemTail(ctx, n)
	if err == nil {
		lines = append(lines, sysLines...)
	}
	// a missing system source is not fatal; the file log alone is
	// still a useful answer

	mergeChronological(lines)
	return lines, nil
}

// Follow streams new log lines until the context is cancelled or the
// cleanup function is called. The daemon file is tailed through
// fsnotify; the system source through the native follow command.
// Follow never mutates service state, so interrupting it is always
// safe.
func (r *Reporter) Follow(ctx context.Context) (<-chan LogLine, func() error, error) {
	ch := make(chan LogLine, 64)
	sctx := stopper.WithContext(ctx)

	cleanup := func() error {
		sctx.Stop(200 * time.Millisecond)
		return sctx.Wait()
	}

	if err := r.followFile(sctx, ch); err != nil {
		sctx.Stop(0)
		return nil, nil, err
	}
	r.followSystem(sctx, ch)

	sctx.Defer(func() { close(ch) })

	return ch, cleanup, nil
}

// followFile tails the daemon log file from its current end, emitting
// new data on fsnotify write events with a poll fallback for filesystems
// that drop events.
func (r *Reporter) followFile(sctx *stopper.Context, ch chan<- LogLine) error {
	path := r.cfg.Paths.DaemonLogPath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting log watcher: %w", err)
	}
	// watch the directory: the log file may be rotated or not exist yet
	if err := watcher.Add(r.cfg.Paths.LogDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", r.cfg.Paths.LogDir, err)
	}

	var offset int64
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}

	sctx.Go(func(sctx *stopper.Context) error {
		defer func() { _ = watcher.Close() }()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		emit := func() {
			newOffset, lines := readNewLines(path, offset)
			offset = newOffset
			for _, text := range lines {
				select {
				case ch <- LogLine{Time: time.Now(), Source: LogSourceFile, Text: text}:
				case <-sctx.Stopping():
					return
				}
			}
		}

		for {
			select {
			case <-sctx.Stopping():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Name == path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					emit()
				}
			case <-watcher.Errors:
			case <-ticker.C:
				emit()
			}
		}
	})
	return nil
}

// followSystem spawns the native follow command and forwards its
// stdout. The subprocess dies with the context.
func (r *Reporter) followSystem(sctx *stopper.Context, ch chan<- LogLine) {
	name, args := r.systemFollowCommand()
	if name == "" {
		return
	}

	sctx.Go(func(sctx *stopper.Context) error {
		cmd := exec.CommandContext(sctx, name, args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil
		}
		if err := cmd.Start(); err != nil {
			return nil
		}
		defer func() { _ = cmd.Wait() }()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := parseSystemLine(scanner.Text())
			select {
			case ch <- line:
			case <-sctx.Stopping():
				return nil
			}
		}
		return nil
	})
}

// systemTail fetches recent lines from the native system log.
func (r *Reporter) systemTail(ctx context.Context, n int) ([]LogLine, error) {
	var name string
	var args []string

	switch r.cfg.Platform {
	case PlatformLinux:
		args = []string{"-u", r.cfg.Descriptor.Name + ".service", "-n", fmt.Sprint(n), "--no-pager", "-o", "short-iso"}
		if r.cfg.Context == ContextUser {
			args = append([]string{"--user"}, args...)
		}
		name = "journalctl"
	case PlatformDarwin:
		name = "log"
		args = []string{"show", "--style", "syslog", "--last", "30m",
			"--predicate", fmt.Sprintf("process == %q", DaemonBinary)}
	case PlatformWindows:
		name = "wevtutil"
		args = []string{"qe", "Application",
			fmt.Sprintf("/q:*[System[Provider[@Name=%q]]]", EventLogSource),
			fmt.Sprintf("/c:%d", n), "/rd:true", "/f:text"}
	default:
		return nil, fmt.Errorf("%w: system log source", ErrUnsupportedPlatform)
	}

	out, err := r.run.run(ctx, name, args...)
	if err != nil {
		return nil, err
	}

	var lines []LogLine
	for _, text := range strings.Split(out, "\n") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, parseSystemLine(text))
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// systemFollowCommand returns the native follow invocation.
func (r *Reporter) systemFollowCommand() (string, []string) {
	switch r.cfg.Platform {
	case PlatformLinux:
		args := []string{"-u", r.cfg.Descriptor.Name + ".service", "-f", "--no-pager", "-o", "short-iso"}
		if r.cfg.Context == ContextUser {
			args = append([]string{"--user"}, args...)
		}
		return "journalctl", args
	case PlatformDarwin:
		return "log", []string{"stream", "--style", "syslog",
			"--predicate", fmt.Sprintf("process == %q", DaemonBinary)}
	default:
		// the Windows event log has no follow equivalent worth
		// polling; the file tail covers it
		return "", nil
	}
}

// parseSystemLine labels a native log line, extracting a leading
// ISO8601/syslog timestamp when one parses.
func parseSystemLine(text string) LogLine {
	line := LogLine{Source: LogSourceSystem, Text: text}
	fields := strings.Fields(text)
	if len(fields) > 0 {
		for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
			if ts, err := time.Parse(layout, fields[0]); err == nil {
				line.Time = ts
				break
			}
		}
		if line.Time.IsZero() && len(fields) > 1 {
			if ts, err := time.Parse("2006-01-02 15:04:05", fields[0]+" "+fields[1]); err == nil {
				line.Time = ts
			}
		}
	}
	return line
}

// tailFile reads the last n lines of a plain log file.
func tailFile(path string, n int) ([]LogLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}

	if len(all) > n {
		all = all[len(all)-n:]
	}
	lines := make([]LogLine, 0, len(all))
	for _, text := range all {
		lines = append(lines, parseFileLine(text))
	}
	return lines, nil
}

// parseFileLine labels a daemon log file line, extracting a leading
// RFC3339 timestamp when present (slog text handler format).
func parseFileLine(text string) LogLine {
	line := LogLine{Source: LogSourceFile, Text: text}
	if eq := strings.Index(text, "time="); eq == 0 {
		rest := text[len("time="):]
		if sp := strings.IndexByte(rest, ' '); sp > 0 {
			if ts, err := time.Parse(time.RFC3339, rest[:sp]); err == nil {
				line.Time = ts
			}
		}
	} else if fields := strings.Fields(text); len(fields) > 0 {
		if ts, err := time.Parse(time.RFC3339, fields[0]); err == nil {
			line.Time = ts
		}
	}
	return line
}

// readNewLines reads complete lines appended to path past offset,
// handling truncation from rotation.
func readNewLines(path string, offset int64) (int64, []string) {
	f, err := os.Open(path)
	if err != nil {
		return offset, nil
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return offset, nil
	}
	if info.Size() < offset {
		// rotated or truncated; start over
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return offset, nil
	}

	// hold back a trailing partial line for the next read
	complete := data
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if idx := strings.LastIndexByte(string(data), '\n'); idx >= 0 {
			complete = data[:idx+1]
		} else {
			complete = nil
		}
	}

	var lines []string
	for _, text := range strings.Split(strings.TrimRight(string(complete), "\n"), "\n") {
		if text != "" {
			lines = append(lines, text)
		}
	}
	return offset + int64(len(complete)), lines
}

// mergeChronological sorts lines by timestamp, keeping undated lines in
// their original relative order at the front.
func mergeChronological(lines []LogLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Time.Before(lines[j].Time)
	})
}
