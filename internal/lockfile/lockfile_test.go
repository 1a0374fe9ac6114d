package lockfile

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockTarget(t *testing.T, path string) string {
	t.Helper()
	target, err := os.Readlink(path + ".lock")
	require.NoError(t, err)
	return target
}

// deadPID returns a pid that belonged to an already-reaped process.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())
	return cmd.Process.Pid
}

func TestAcquireCreatesMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	require.True(t, Acquire(path, time.Second))

	info, err := os.Lstat(path + ".lock")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "lock marker should be a symlink")

	hostname, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s:%d", hostname, os.Getpid()), lockTarget(t, path))
}

func TestReleaseRemovesMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	require.True(t, Acquire(path, time.Second))
	Release(path)

	_, err := os.Lstat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock marker should be gone after release")
}

func TestReleaseAbsentMarker(t *testing.T) {
	// Tolerated, not an error: an external breaker may have removed it.
	Release(filepath.Join(t.TempDir(), "never-locked"))
}

func TestAcquireContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	require.True(t, Acquire(path, time.Second))
	holder := lockTarget(t, path)

	// The holder is alive, so a second acquirer must give up at its
	// timeout without breaking the lock.
	start := time.Now()
	assert.False(t, Acquire(path, 200*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, holder, lockTarget(t, path), "contender must not disturb a live holder's marker")

	Release(path)
	assert.True(t, Acquire(path, time.Second), "lock should be acquirable after release")
}

func TestBreakDeadHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	planted := fmt.Sprintf("%s:%d", hostname, deadPID(t))
	require.NoError(t, os.Symlink(planted, path+".lock"))

	require.True(t, Acquire(path, time.Second), "dead holder's lock should be broken")

	target := lockTarget(t, path)
	assert.NotEqual(t, planted, target)
	assert.True(t, strings.HasSuffix(target, fmt.Sprintf(":%d", os.Getpid())))

	_, err = os.Lstat(path + ".lock.lock")
	assert.True(t, os.IsNotExist(err), "secondary breaking marker should be cleaned up")
}

func TestBreakUnprobeableHolderByAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	// A garbage target cannot be probed for liveness; it goes stale once
	// its content stays unchanged long enough.
	require.NoError(t, os.Symlink("foo", path+".lock"))

	require.True(t, Acquire(path, 400*time.Millisecond))
	assert.NotEqual(t, "foo", lockTarget(t, path))

	_, err := os.Lstat(path + ".lock.lock")
	assert.True(t, os.IsNotExist(err), "secondary breaking marker should be cleaned up")
}

func TestLiveBreakerBlocksBreaking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	// Another live process is mid-break: its secondary marker exists and
	// its holder is demonstrably alive. We must not break concurrently,
	// and must not remove their secondary marker.
	breaker := fmt.Sprintf("%s:%d", hostname, os.Getpid())
	require.NoError(t, os.Symlink("foo", path+".lock"))
	require.NoError(t, os.Symlink(breaker, path+".lock.lock"))

	assert.False(t, Acquire(path, 300*time.Millisecond))
	assert.Equal(t, "foo", lockTarget(t, path), "primary marker must survive")

	target, err := os.Readlink(path + ".lock.lock")
	require.NoError(t, err)
	assert.Equal(t, breaker, target, "live breaker's secondary marker must survive")
}

func TestBreakAbandonedBreaker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	// A breaker crashed mid-break, leaving both markers behind. Both go
	// stale by age and acquisition must recover the resource.
	require.NoError(t, os.Symlink("foo", path+".lock"))
	require.NoError(t, os.Symlink("foo", path+".lock.lock"))

	require.True(t, Acquire(path, time.Second), "abandoned lock and breaking marker should be broken")
	assert.NotEqual(t, "foo", lockTarget(t, path))

	_, err := os.Lstat(path + ".lock.lock")
	assert.True(t, os.IsNotExist(err), "stale secondary breaking marker should be gone")
}

func TestBreakAbandonedBreakerDeadHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	// The crashed breaker's pid is probeably dead, so recovery does not
	// have to wait out the age threshold.
	dead := fmt.Sprintf("%s:%d", hostname, deadPID(t))
	require.NoError(t, os.Symlink(dead, path+".lock"))
	require.NoError(t, os.Symlink(dead, path+".lock.lock"))

	require.True(t, Acquire(path, time.Second))
	assert.NotEqual(t, dead, lockTarget(t, path))

	_, err = os.Lstat(path + ".lock.lock")
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRegularFileMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	// A regular file where the symlink should be cannot be judged for
	// staleness; acquisition reports failure instead of breaking blindly.
	require.NoError(t, os.WriteFile(path+".lock", []byte(""), 0644))
	assert.False(t, Acquire(path, 200*time.Millisecond))

	_, err := os.Stat(path + ".lock")
	assert.NoError(t, err, "foreign marker must survive")
}

func TestAcquireTimeoutIsBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")
	require.True(t, Acquire(path, time.Second))

	start := time.Now()
	assert.False(t, Acquire(path, 100*time.Millisecond))
	assert.Less(t, time.Since(start), 2*time.Second, "retry loop must respect the timeout budget")
}

func TestAcquireTimeoutBoundedUnderChurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource")

	// Another live process acquires and releases the lock in a tight loop.
	// The marker may vanish between our creation attempt and our readlink
	// on every iteration; the timeout must still be a hard bound.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = os.Symlink(holderID(), path+".lock")
			_ = os.Remove(path + ".lock")
		}
	}()

	start := time.Now()
	Acquire(path, 200*time.Millisecond)
	elapsed := time.Since(start)
	close(stop)
	<-done

	assert.Less(t, elapsed, time.Second, "churning marker must not extend the retry loop past the timeout")
}
