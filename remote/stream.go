package remote

import (
	"bufio"

	"github.com/noob000007/remote-conda-decorator/iox"
	"github.com/noob000007/remote-conda-decorator/ipc"
)

// maxLineSize bounds one line of child output.
const maxLineSize = 1024 * 1024

// stream reads the child's stdout to EOF. The marker for resultPath is
// recorded; every other line goes to the relay. It reports whether the
// marker was seen, and any read error. After a read error the rest of the
// output is discarded so the child never blocks on a full pipe.
func (k *call) stream(proc Process, resultPath string) (bool, error) {
	cfg := &k.client.config
	stdout := proc.Stdout()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	sawMarker := false
	for scanner.Scan() {
		line := scanner.Text()
		if ipc.IsMarkerFor(line, resultPath) {
			sawMarker = true
			continue
		}
		cfg.Relay(cfg.Env, line)
		cfg.Collector.IncRelayedLine()
	}

	err := scanner.Err()
	if err != nil {
		k.logger.Warn("child output unreadable, discarding the rest", map[string]any{
			"error": err.Error(),
		})
		dropped := iox.Drain(stdout)
		k.logger.Debug("discarded child output", map[string]any{"bytes": dropped})
	}
	return sawMarker, err
}
