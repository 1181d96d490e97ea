package spanz

import (
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type stackFrame struct {
	MethodName string `json:"method_name"`
	FileName   string `json:"file_name"`
	LineNumber int    `json:"line_number"`
}

type stackFrames struct {
	Frames []stackFrame `json:"stack_frame"`
}

// StackTraceLabels renders st as the value of StackTraceLabel: a JSON
// object with one entry per frame, innermost first.
func StackTraceLabels(st errors.StackTrace) (map[string]string, error) {
	if len(st) == 0 {
		return nil, invalidArgument("empty stack trace")
	}

	frames := stackFrames{Frames: make([]stackFrame, 0, len(st))}
	for _, f := range st {
		// Frame values are return addresses; step back into the call.
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			frames.Frames = append(frames.Frames, stackFrame{MethodName: "unknown"})
			continue
		}
		file, line := fn.FileLine(pc)
		frames.Frames = append(frames.Frames, stackFrame{
			MethodName: fn.Name(),
			FileName:   file,
			LineNumber: line,
		})
	}

	data, err := json.Marshal(frames)
	if err != nil {
		return nil, errors.Wrap(err, "encode stack trace")
	}
	return map[string]string{StackTraceLabel: string(data)}, nil
}

// callers captures the stack of the calling goroutine, dropping skip
// frames above the caller of callers.
func callers(skip int) errors.StackTrace {
	// errors.New records the stack starting at its caller, which is this
	// function.
	st := errors.New("").(stackTracer).StackTrace()
	skip++
	if skip >= len(st) {
		return st
	}
	return st[skip:]
}

// stackOf returns the stack recorded closest to where err originated, or
// the current stack if nothing in the chain recorded one.
func stackOf(err error, skip int) errors.StackTrace {
	var deepest errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			deepest = st.StackTrace()
		}
	}
	if len(deepest) > 0 {
		return deepest
	}
	return callers(skip + 1)
}
