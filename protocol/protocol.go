// Package protocol defines the messages exchanged between a coordinator and
// its workers.
//
// Both directions are closed sets: Request is implemented only by Init, Step
// and Start, Response only by Ready, Partial, Page, Done and Error. Consumers
// match them with type switches. Every message carries the worker id, and
// iteration-scoped messages carry the iteration number, so misrouted or
// stale responses can be rejected.
//
// Clustering:
//
//	Init  -> Ready | Error
//	Step  -> Partial | Error
//
// Fetching:
//
//	Start -> Page* (Done | Error)
package protocol

import (
	"time"

	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/source"
)

// Request is a coordinator-to-worker message.
type Request interface {
	WorkerID() int
	Kind() string
	isRequest()
}

// Response is a worker-to-coordinator message.
type Response interface {
	WorkerID() int
	Kind() string
	isResponse()
}

// Init hands a clustering worker its shared buffers and owned range.
//
// Points is the full PointBuffer (3 values per point) and is read-only.
// Assignments is the full AssignmentTable; the worker must only write
// indices in [RangeStart, RangeEnd).
type Init struct {
	ID          int
	K           int
	Points      []float64
	Assignments []int32
	RangeStart  int
	RangeEnd    int
}

// Step asks a clustering worker to run one assignment pass.
type Step struct {
	ID        int
	Iteration int
	Centroids [][3]float64
}

// Start asks a fetch worker to fetch its offsets sequentially.
type Start struct {
	ID              int
	Offsets         []int
	PageSize        int
	PerRequestDelay time.Duration
	InitialDelay    time.Duration
	Credentials     source.Credentials
}

// Ready acknowledges an Init.
type Ready struct {
	ID int
}

// Partial is a clustering worker's contribution to one iteration.
type Partial struct {
	ID        int
	Iteration int
	Sums      [][3]float64
	Counts    []int
	Changed   bool

	// Inertia is the sum of squared distances from each owned point to its
	// assigned centroid.
	Inertia float64
}

// Page carries the records fetched at Offset.
//
// Skipped marks an offset whose attempts were all rate limited. It carries no
// data and the offset counts as missing.
type Page struct {
	ID      int
	Offset  int
	Data    []model.City
	Skipped bool
}

// Done is the terminal success message of a fetch worker.
type Done struct {
	ID    int
	Total int
}

// Error is the terminal failure message of a worker.
//
// Iteration is set when the failure happened while handling a Step; zero
// otherwise. Err keeps the original error for errors.Is checks.
type Error struct {
	ID        int
	Iteration int
	Message   string
	Err       error
}

func (m Init) WorkerID() int    { return m.ID }
func (m Step) WorkerID() int    { return m.ID }
func (m Start) WorkerID() int   { return m.ID }
func (m Ready) WorkerID() int   { return m.ID }
func (m Partial) WorkerID() int { return m.ID }
func (m Page) WorkerID() int    { return m.ID }
func (m Done) WorkerID() int    { return m.ID }
func (m Error) WorkerID() int   { return m.ID }

func (Init) Kind() string    { return "init" }
func (Step) Kind() string    { return "step" }
func (Start) Kind() string   { return "start" }
func (Ready) Kind() string   { return "ready" }
func (Partial) Kind() string { return "partial" }
func (Page) Kind() string    { return "page" }
func (Done) Kind() string    { return "done" }
func (Error) Kind() string   { return "error" }

func (Init) isRequest()  {}
func (Step) isRequest()  {}
func (Start) isRequest() {}

func (Ready) isResponse()   {}
func (Partial) isResponse() {}
func (Page) isResponse()    {}
func (Done) isResponse()    {}
func (Error) isResponse()   {}

// Terminal reports whether resp ends a worker's stream (Done or Error).
func Terminal(resp Response) bool {
	switch resp.(type) {
	case Done, Error:
		return true
	}
	return false
}

// Answers reports whether resp is the reply to req: the worker ids match, the
// response type is one req can produce, and for Step the iteration matches.
//
// An Error answers any request of the same worker unless it is scoped to a
// different iteration.
func Answers(req Request, resp Response) bool {
	if req.WorkerID() != resp.WorkerID() {
		return false
	}
	switch r := req.(type) {
	case Init:
		switch resp.(type) {
		case Ready:
			return true
		case Error:
			return true
		}
	case Step:
		switch p := resp.(type) {
		case Partial:
			return p.Iteration == r.Iteration
		case Error:
			return p.Iteration == 0 || p.Iteration == r.Iteration
		}
	case Start:
		return Terminal(resp)
	}
	return false
}
