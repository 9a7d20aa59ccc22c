package autofilter

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-level logger used by every component. The daemon's CLI
// sets its level at startup; library callers embedding the package can
// replace it outright.
var Log = logrus.New()

func init() {
	Log.SetOutput(os.Stderr)
}
