package importer

import (
	"fmt"
	"strings"
)

// Outcome of one import step
type Outcome string

const (
	Created Outcome = "created"
	Exists  Outcome = "exists"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Entity names what a step worked on
type Entity string

const (
	EntitySession Entity = "session"
	EntityPlayer  Entity = "player"
	EntityResult  Entity = "result"
)

// Line is one step of the import log
type Line struct {
	Entity  Entity  `json:"entity"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}

func (l Line) String() string {
	return l.Message
}

// Report collects the lines of a run in order
type Report struct {
	Lines []Line `json:"lines"`
}

func (r *Report) add(entity Entity, outcome Outcome, format string, args ...any) Line {
	l := Line{Entity: entity, Outcome: outcome, Message: fmt.Sprintf(format, args...)}
	r.Lines = append(r.Lines, l)
	return l
}

// Count returns how many steps ended with the outcome
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, l := range r.Lines {
		if l.Outcome == outcome {
			n++
		}
	}
	return n
}

// CountFor narrows Count to one entity
func (r *Report) CountFor(entity Entity, outcome Outcome) int {
	n := 0
	for _, l := range r.Lines {
		if l.Entity == entity && l.Outcome == outcome {
			n++
		}
	}
	return n
}

// Summary is a one line digest of the counts
func (r *Report) Summary() string {
	return fmt.Sprintf("%d created, %d already existed, %d skipped, %d failed",
		r.Count(Created), r.Count(Exists), r.Count(Skipped), r.Count(Failed))
}

func (r *Report) String() string {
	var b strings.Builder
	for _, l := range r.Lines {
		b.WriteString(l.Message)
		b.WriteByte('\n')
	}
	return b.String()
}
