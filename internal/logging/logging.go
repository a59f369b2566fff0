// Package logging configures spotfd's diagnostic logging. Every entry goes
// to stderr so stdout stays a clean, pipeable stream of result paths.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    false,
		DisableTimestamp: true,
	})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetVerbose raises the root logger to Debug level; used by the CLI's
// --verbose flag.
func SetVerbose(verbose bool) {
	if verbose {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.WarnLevel)
	}
}

// For returns the named component's logger entry, e.g. For("filter"),
// For("mdfind"), For("cache"), For("watch"), For("cli").
func For(component string) *logrus.Entry {
	return root.WithField("component", component)
}
