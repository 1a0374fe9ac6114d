// Package hashutil turns source text, source files and compiler check
// command output into hash accumulator updates for cache keys, detecting
// temporal macros that would make a naive content hash unsound.
package hashutil

import (
	"os"
	"time"

	"github.com/cachalot-cc/cachalot/internal/buffer"
	"github.com/cachalot-cc/cachalot/internal/config"
	"github.com/cachalot-cc/cachalot/internal/digest"
	"github.com/cachalot-cc/cachalot/internal/logging"
	"github.com/cachalot-cc/cachalot/internal/macroscan"
)

// HashSourceText folds buf into d and returns a bitmask of macroscan flags.
// The raw content is always folded; calendar or timestamp data is folded on
// top when the corresponding macro was found, so that the key changes
// whenever the macro's potential expansion changes. Callers must check for
// macroscan.Error before interpreting the flags.
func HashSourceText(d *digest.Digest, buf *buffer.Buffer, path string, sloppy config.Sloppy) macroscan.Result {
	result := macroscan.OK

	if !sloppy.Has(config.SloppyTimeMacros) {
		result |= macroscan.Scan(buf)
	}

	d.AddBytes(buf.Bytes())

	if result.Has(macroscan.FoundDate) {
		logging.L().Infof("found __DATE__ in %s", path)

		addDateSection(d, time.Now())
	}
	if result.Has(macroscan.FoundTime) {
		// Folding the current clock time would make the key unique per
		// invocation and defeat caching outright. Report the flag so the
		// caller can disable its direct mode for this compilation.
		logging.L().Infof("found __TIME__ in %s", path)
	}
	if result.Has(macroscan.FoundTimestamp) {
		logging.L().Infof("found __TIMESTAMP__ in %s", path)

		info, err := os.Stat(path)
		if err != nil {
			logging.L().Infof("failed to stat %s: %v", path, err)
			return macroscan.Error
		}
		d.AddDelimiter("timestamp")
		d.AddString(formatTimestamp(info.ModTime()))
	}

	return result
}

// addDateSection folds the local calendar day — what __DATE__ would
// textually expand to — rather than the raw timestamp.
func addDateSection(d *digest.Digest, now time.Time) {
	year, month, day := now.Date()
	d.AddDelimiter("date")
	d.AddInt(year)
	d.AddInt(int(month))
	d.AddInt(day)
}

// formatTimestamp renders t the way the runtime library expands
// __TIMESTAMP__: asctime-style, in local time, with a trailing newline.
func formatTimestamp(t time.Time) string {
	return t.Local().Format(time.ANSIC) + "\n"
}

// HashSourceFile folds the file at path into d. Precompiled-header
// artifacts are binary, so they are hashed raw without macro scanning;
// anything else is read into a padded buffer and handed to HashSourceText.
// sizeHint pre-allocates the read buffer and is not a correctness
// constraint.
func HashSourceFile(d *digest.Digest, path string, sizeHint int, sloppy config.Sloppy) macroscan.Result {
	if IsPrecompiledHeader(path) {
		if err := HashFile(d, path); err != nil {
			logging.L().Infof("failed to hash %s: %v", path, err)
			return macroscan.Error
		}
		return macroscan.OK
	}

	buf, err := ReadFile(path, sizeHint)
	if err != nil {
		logging.L().Infof("failed to read %s: %v", path, err)
		return macroscan.Error
	}
	return HashSourceText(d, buf, path, sloppy)
}
