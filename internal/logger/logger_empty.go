//go:build logless

package logger

// EmptyLog discards every call, letting a logless build drop all logging
// overhead without call sites needing a build-tagged branch of their own.
type EmptyLog struct{}

var Log = EmptyLog{}

func (l EmptyLog) Debug() EmptyLog { return l }
func (l EmptyLog) Info() EmptyLog  { return l }
func (l EmptyLog) Warn() EmptyLog  { return l }
func (l EmptyLog) Error() EmptyLog { return l }

func (l EmptyLog) Msg(string)          {}
func (l EmptyLog) Err(error) EmptyLog  { return l }
func (l EmptyLog) Str(string, string) EmptyLog { return l }
func (l EmptyLog) Int(string, int) EmptyLog    { return l }

// NodeEvent and TableEvent mirror the !logless build's field-tagging
// helpers so call sites don't need a build-tagged branch of their own.
func NodeEvent(ev EmptyLog, nodeID, op string) EmptyLog { return ev }
func TableEvent(ev EmptyLog, bits, scale int) EmptyLog  { return ev }
