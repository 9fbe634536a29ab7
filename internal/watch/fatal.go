// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports resource exhaustion, after which the watcher
// cannot recover:
//   - ENOSPC: inotify watch limit exceeded (fs.inotify.max_user_watches)
//   - EMFILE: per-process file descriptor limit exceeded
//   - ENFILE: system-wide file descriptor limit exceeded
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
