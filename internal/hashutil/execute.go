package hashutil

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/cachalot-cc/cachalot/internal/digest"
	"github.com/cachalot-cc/cachalot/internal/logging"
)

// compilerPlaceholder in a check command is replaced by the compiler path.
const compilerPlaceholder = "%compiler%"

// HashCommandOutput runs commandLine (with compilerPlaceholder substituted
// by compilerPath) and streams its combined stdout+stderr into d. Both
// streams are significant to the check, so they share one pipe. Returns true
// only if the command exits zero and its output was read without error;
// failures are logged and reported as false.
func HashCommandOutput(d *digest.Digest, commandLine, compilerPath string) bool {
	argv, err := shellquote.Split(commandLine)
	if err != nil || len(argv) == 0 {
		logging.L().Infof("failed to parse compiler check command %q: %v", commandLine, err)
		return false
	}
	for i, arg := range argv {
		if arg == compilerPlaceholder {
			argv[i] = compilerPath
		}
	}
	logging.L().Infof("executing compiler check command: %s", strings.Join(argv, " "))

	r, w, err := os.Pipe()
	if err != nil {
		logging.L().Infof("failed to create pipe: %v", err)
		return false
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		logging.L().Infof("failed to start compiler check command: %v", err)
		return false
	}
	// The child holds the write end now; close ours so the read below sees
	// EOF when the child exits.
	w.Close()

	_, copyErr := io.Copy(d, r)
	r.Close()
	waitErr := cmd.Wait()

	if copyErr != nil {
		logging.L().Infof("error hashing compiler check command output: %v", copyErr)
		return false
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logging.L().Infof("compiler check command returned %d", exitErr.ExitCode())
		} else {
			logging.L().Infof("compiler check command failed: %v", waitErr)
		}
		return false
	}
	return true
}

// HashMulticommandOutput splits commands on ';' and hashes the output of
// each in order. Every command is attempted even after an earlier failure —
// a partial hash is still deterministic and useful for diagnosing
// mismatches. Returns the AND of the individual results.
func HashMulticommandOutput(d *digest.Digest, commands, compilerPath string) bool {
	ok := true
	for _, command := range strings.Split(commands, ";") {
		if strings.TrimSpace(command) == "" {
			continue
		}
		if !HashCommandOutput(d, command, compilerPath) {
			ok = false
		}
	}
	return ok
}
