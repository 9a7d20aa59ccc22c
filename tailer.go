package autofilter

import (
	"fmt"
	"os"
	"time"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"
)

// defaultRotationCeiling is the default file-size threshold past which the
// tailer rotates the log out from under the writer.
const defaultRotationCeiling = 1 << 30 // 1 GiB

// rotationBurst bounds how many lines the tailer reads between rotation
// checks.
const rotationBurst = 1024

// TailerFlavor selects whether a Tailer stops at EOF or follows indefinitely.
type TailerFlavor int

const (
	// FlavorOnce yields to EOF then stops, used by the reporting commands
	// against a static file.
	FlavorOnce TailerFlavor = iota
	// FlavorTail yields indefinitely, sleeping when caught up, used by the
	// daemon loop.
	FlavorTail
)

// Tailer follows an access log, optionally rotating it out from under its
// writer when it grows past a ceiling. Built on nxadm/tail for the
// blocking line-follow primitive, with rotation and reopen-on-inode-change
// behavior layered on top in application code.
type Tailer struct {
	Path            string
	Flavor          TailerFlavor
	RotationCeiling int64
	ArchiveTemplate string
	Pidfile         string
	inode           uint64
	tail            *tail.Tail
	linesSinceCheck int
	done            chan struct{}
	stopped         bool
}

// NewTailer opens path and records its identity for rotation/reopen
// detection. archiveTemplate is a printf-style pattern taking the
// original path and a unix timestamp, e.g. "%s.%d"; an empty template
// defaults to that form.
func NewTailer(path string, flavor TailerFlavor, rotationCeiling int64, archiveTemplate, pidfile string) (*Tailer, error) {
	if rotationCeiling == 0 {
		rotationCeiling = defaultRotationCeiling
	}
	if archiveTemplate == "" {
		archiveTemplate = "%s.%d"
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("primary log path disappeared: %w", err)
	}

	t := &Tailer{
		Path:            path,
		Flavor:          flavor,
		RotationCeiling: rotationCeiling,
		ArchiveTemplate: archiveTemplate,
		Pidfile:         pidfile,
		inode:           inodeOf(info),
		done:            make(chan struct{}),
	}

	if err := t.open(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tailer) open() error {
	followTail := t.Flavor == FlavorTail
	tt, err := tail.TailFile(t.Path, tail.Config{
		Follow:    followTail,
		ReOpen:    false, // reopen handled explicitly via inode comparison
		MustExist: true,
		Location:  &tail.SeekInfo{Whence: 0},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	t.tail = tt
	return nil
}

// Lines returns the next line of the log, blocking (tail flavor) until one
// is available or the tailer is stopped, or returning io.EOF-equivalent
// (ok=false) once flavor-once has drained the file.
func (t *Tailer) Lines() (line string, ok bool, err error) {
	for {
		select {
		case <-t.done:
			return "", false, nil
		case l, open := <-t.tail.Lines:
			if !open {
				return "", false, nil
			}
			if l.Err != nil {
				return "", false, l.Err
			}
			t.linesSinceCheck++
			if t.linesSinceCheck >= rotationBurst {
				t.linesSinceCheck = 0
				if err := t.checkRotation(); err != nil {
					Log.WithError(err).WithField("file", t.Path).Warn("rotation check failed")
				}
			}
			return l.Text, true, nil
		}
	}
}

// checkRotation implements between-bursts stat check: ceiling-based
// rotation, and inode-change reopen.
func (t *Tailer) checkRotation() error {
	info, err := os.Stat(t.Path)
	if err != nil {
		return fmt.Errorf("primary log path disappeared: %w", err)
	}

	if inodeOf(info) != t.inode {
		Log.WithField("file", t.Path).Info("inode changed, reopening at start")
		return t.reopen()
	}

	if info.Size() <= t.RotationCeiling {
		return nil
	}

	return t.rotate(info)
}

func (t *Tailer) rotate(info os.FileInfo) error {
	archivePath := fmt.Sprintf(t.ArchiveTemplate, t.Path, time.Now().Unix())
	Log.WithFields(logrus.Fields{"file": t.Path, "archive": archivePath}).Info("rotating log file")

	if err := os.Rename(t.Path, archivePath); err != nil {
		return err
	}

	mode := info.Mode()
	f, err := os.OpenFile(t.Path, os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	chownToMatch(f, info)
	f.Close()

	if t.Pidfile != "" {
		if err := SignalRotated(t.Pidfile); err != nil {
			Log.WithError(err).Warn("failed to signal log reopen")
		}
	}

	time.Sleep(time.Second)
	return t.reopen()
}

func (t *Tailer) reopen() error {
	if t.tail != nil {
		t.tail.Stop()
	}
	info, err := os.Stat(t.Path)
	if err != nil {
		return fmt.Errorf("primary log path disappeared: %w", err)
	}
	t.inode = inodeOf(info)
	return t.open()
}

// Stop halts the tailer; a pending Lines call returns ok=false.
func (t *Tailer) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.done)
	if t.tail != nil {
		t.tail.Stop()
	}
}
