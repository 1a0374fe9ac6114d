// Package lockfile provides mutual exclusion between unrelated processes
// using only filesystem primitives.
//
// A lock on a resource is a symlink at <path>.lock whose target identifies
// the holder as hostname:pid. Symlink creation fails if the target already
// exists, which makes it the atomic acquire primitive; no in-process state
// survives between holders. Locks abandoned by crashed processes are
// detected (a same-host holder that is demonstrably dead, or a marker whose
// content has not changed for a threshold derived from the caller's
// timeout) and broken.
// Breaking is serialized through a secondary <path>.lock.lock marker so two
// racing breakers cannot both remove a fresh lock. The secondary marker is
// judged by the same staleness rules, so a breaker that crashed mid-break
// cannot wedge the resource forever.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cachalot-cc/cachalot/internal/logging"
)

const (
	initialBackoff = time.Millisecond
	maxBackoff     = 100 * time.Millisecond
)

// Acquire obtains the lock for path, retrying with bounded backoff for at
// most timeout of total wall-clock time. It returns false when a fresh
// holder keeps the lock past the timeout or on unexpected filesystem
// errors; both are ordinary outcomes for the caller to handle.
func Acquire(path string, timeout time.Duration) bool {
	lockPath := path + ".lock"
	lockLockPath := lockPath + ".lock"
	holder := holderID()

	deadline := time.Now().Add(timeout)
	sleep := initialBackoff
	now := time.Now()
	primary := staleTracker{unchangedSince: now}
	secondary := staleTracker{unchangedSince: now}

	for {
		err := os.Symlink(holder, lockPath)
		if err == nil {
			return true
		}
		if !errors.Is(err, os.ErrExist) {
			logging.L().Infof("lockfile_acquire %s: %v", lockPath, err)
			return false
		}

		target, err := os.Readlink(lockPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				// Not a symlink or otherwise unreadable; we cannot judge
				// staleness, so report failure rather than break blindly.
				logging.L().Infof("lockfile_acquire %s: %v", lockPath, err)
				return false
			}
			// The holder released between our attempts. Retry right away,
			// but keep the deadline a hard bound even when the marker
			// churns on every iteration.
			if time.Until(deadline) <= 0 {
				logging.L().Infof("lockfile_acquire %s: timed out after %s", lockPath, timeout)
				return false
			}
			continue
		}
		primary.observe(target)

		// Watch the breaking marker on the same clock as the primary, so
		// one abandoned by a crashed breaker goes stale too instead of
		// blocking every future breaker.
		if secTarget, err := os.Readlink(lockLockPath); err == nil {
			secondary.observe(secTarget)
		}

		if primary.stale(timeout) && tryBreak(lockPath, target, &secondary, timeout) {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			logging.L().Infof("lockfile_acquire %s: timed out after %s (held by %s)",
				lockPath, timeout, target)
			return false
		}
		if sleep > remaining {
			sleep = remaining
		}
		time.Sleep(sleep)
		if sleep *= 2; sleep > maxBackoff {
			sleep = maxBackoff
		}
	}
}

// Release removes the lock marker for path. The caller is assumed to hold
// the lock; a marker already removed by an external breaker is tolerated.
func Release(path string) {
	lockPath := path + ".lock"
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.L().Infof("lockfile_release %s: %v", lockPath, err)
	}
}

// staleTracker watches one marker's target over time. A same-host holder is
// judged by probing its process directly; a holder that cannot be probed
// (other host, garbage target) is judged by how long the marker content
// stays unchanged instead.
type staleTracker struct {
	lastTarget     string
	unchangedSince time.Time
}

func (st *staleTracker) observe(target string) {
	if target != st.lastTarget {
		st.lastTarget = target
		st.unchangedSince = time.Now()
	}
}

// stale reports whether the watched holder is no longer making progress.
// Half the timeout budget leaves room to break and reacquire within it.
func (st *staleTracker) stale(timeout time.Duration) bool {
	switch probeHolder(st.lastTarget) {
	case holderDead:
		return true
	case holderUnknown:
		return time.Since(st.unchangedSince) > timeout/2
	}
	return false
}

// tryBreak removes a stale lock marker. Only one breaker may proceed at a
// time: the secondary <lockPath>.lock marker is created first, and a breaker
// that finds it held by a live process backs off instead of breaking
// concurrently. A secondary marker that is itself stale is removed so a
// later attempt can proceed. The breaker's own secondary marker is removed
// whatever the outcome.
func tryBreak(lockPath, target string, secondary *staleTracker, timeout time.Duration) bool {
	lockLockPath := lockPath + ".lock"
	err := os.Symlink(holderID(), lockLockPath)
	if errors.Is(err, os.ErrExist) {
		// Another process is (or was) breaking this lock. Judge its
		// marker exactly like the primary one.
		secTarget, rerr := os.Readlink(lockLockPath)
		if rerr != nil {
			return false
		}
		secondary.observe(secTarget)
		if secondary.stale(timeout) {
			logging.L().Infof("removing stale breaking marker %s (held by %s)",
				lockLockPath, secTarget)
			if err := os.Remove(lockLockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.L().Infof("lockfile_acquire %s: %v", lockLockPath, err)
			}
		}
		return false
	}
	if err != nil {
		logging.L().Infof("lockfile_acquire %s: %v", lockLockPath, err)
		return false
	}
	defer os.Remove(lockLockPath)

	logging.L().Infof("breaking stale lock %s (held by %s)", lockPath, target)
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.L().Infof("lockfile_acquire %s: %v", lockPath, err)
		return false
	}
	return true
}

// holderID identifies this process in a form another process on the same
// host can probe for liveness.
func holderID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s:%d", hostname, os.Getpid())
}

type holderState int

const (
	holderUnknown holderState = iota
	holderAlive
	holderDead
)

// probeHolder checks whether the holder encoded in target is alive. Holders
// on other hosts, and malformed targets, cannot be probed.
func probeHolder(target string) holderState {
	host, pidStr, ok := strings.Cut(target, ":")
	if !ok {
		return holderUnknown
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return holderUnknown
	}
	hostname, err := os.Hostname()
	if err != nil || host != hostname {
		return holderUnknown
	}
	// Signal 0 performs permission and existence checks only.
	if errors.Is(unix.Kill(pid, 0), unix.ESRCH) {
		return holderDead
	}
	return holderAlive
}
