package assemble

import (
	"fmt"
	"os"
	"time"

	wav "github.com/youpy/go-wav"
)

// wavDuration reads back a converted WAV container and reports its playable
// duration. Used for the completion report and as the limiting length in the
// simple mux path.
func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d, err := wav.NewReader(f).Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read WAV duration from %s: %w", path, err)
	}
	return d, nil
}
