package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cenkalti/backoff/v4"
)

// finalize moves the staged temp file onto the destination. Only lock
// contention is retried, with the base delay doubling per attempt;
// exhausting the budget surfaces ErrFileLocked.
func finalize(dest, tmp string, opts Options) error {
	probe := opts.probe
	if probe == nil {
		probe = reopenExclusive
	}
	retries := opts.LockRetries
	if retries < 1 {
		retries = 1
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(opts.RetryBase),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	), uint64(retries-1))

	attempt := func() error {
		if err := probe(dest); err != nil {
			return fmt.Errorf("%w: %v", ErrFileLocked, err)
		}
		if err := os.Rename(tmp, dest); err != nil {
			return backoff.Permanent(fmt.Errorf("replace %q: %w", dest, err))
		}
		return nil
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		return err
	}
	return nil
}

// reopenExclusive reports whether the destination can be reopened for
// writing. A missing destination is fine.
func reopenExclusive(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return file.Close()
}
