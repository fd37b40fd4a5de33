package driver

import "time"

// Stage describes a high-level lowering phase.
type Stage string

const (
	// StageDecode is crate decoding.
	StageDecode Stage = "decode"
	// StageLower lowers the non-generic roots.
	StageLower Stage = "lower"
	// StageInstances lowers queued instance and glue bodies.
	StageInstances Stage = "instances"
	// StagePrint writes the module out.
	StagePrint Stage = "print"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the function is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the function is being lowered.
	StatusWorking Status = "working"
	// StatusDone indicates the function body was defined.
	StatusDone Status = "done"
	// StatusError indicates lowering failed.
	StatusError Status = "error"
)

// Event reports progress for one function, or for the whole run when Func
// is empty.
type Event struct {
	Func    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func report(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
