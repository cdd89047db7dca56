// Package scheduler implements C4 from spec.md: the constructive scheduler
// that applies a Solution's pending route selections — AVB streams onto
// the per-edge traversal sets the evaluator's worst-case-delay bound
// consults, TSN streams onto gated transmission windows on the Gate
// Control List.
//
// The TSN placement algorithm follows M. L. Raagaard, P. Pop, M.
// Gutiérrez and W. Steiner, "Runtime reconfiguration of time-sensitive
// networking (TSN) schedules for Fog Computing," 2017 IEEE Fog World
// Congress (FWC), 2017, as the original scheduler implements it: frames
// are placed hop by hop, earliest-fit, checking both the outgoing link's
// gate and the next hop's queue occupancy across every repetition of the
// stream within the hyperperiod.
package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/redbug312/adams-leaf/flowtable"
	"github.com/redbug312/adams-leaf/gcl"
	"github.com/redbug312/adams-leaf/internal/obs"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/solution"
	"github.com/redbug312/adams-leaf/stream"
	"github.com/redbug312/adams-leaf/yens"
)

// Sentinel errors for scheduling failures.
var (
	// ErrNoCandidate indicates a selection referenced a candidate index
	// Yen's algorithm never produced for that stream's (src,dst) pair.
	ErrNoCandidate = errors.New("scheduler: no such candidate route")

	// ErrDeadlineExceeded indicates a frame could not be placed within its
	// stream's deadline on the current route/queue assignment.
	ErrDeadlineExceeded = errors.New("scheduler: deadline exceeded")

	// ErrQueuesExhausted indicates every priority queue on a TSN stream's
	// route was tried and none admits it within its deadline.
	ErrQueuesExhausted = errors.New("scheduler: no queue admits stream within deadline")
)

// window is a frame's placement on one hop: [Start, End) in microseconds.
type window = gcl.Interval

// schedule is the hop-by-hop, frame-by-frame placement try_calculate_windows
// works out for one TSN stream on one candidate queue, before it is
// committed to the GCL.
type schedule struct {
	windows [][]window // windows[hop][frame]
	queue   int
}

// Scheduler applies route selections from a Solution onto the network's
// link bandwidth (AVB) and Gate Control List (TSN).
type Scheduler struct {
	net  *network.Network
	yens *yens.Yens
	log  *zap.SugaredLogger
}

// New returns a Scheduler resolving candidate routes from y against net. A
// nil log discards scheduler diagnostics.
func New(net *network.Network, y *yens.Yens, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = obs.Nop()
	}

	return &Scheduler{net: net, yens: y, log: log}
}

// Configure applies every Pending AVB and TSN selection in sol, then
// promotes every newly Scheduled selection to Stay (spec.md §5). It should
// be called after routing but before the Solution's cost is evaluated.
func (s *Scheduler) Configure(sol *solution.Solution) error {
	if err := s.configureAVBs(sol); err != nil {
		return err
	}
	if err := s.configureTSNs(sol); err != nil {
		return err
	}
	sol.Confirm()

	return nil
}

func (s *Scheduler) route(src, dst, kth int) (network.Path, error) {
	paths, err := s.yens.KShortestPaths(int64(src), int64(dst))
	if err != nil {
		return nil, err
	}
	if kth < 0 || kth >= len(paths) {
		return nil, fmt.Errorf("%w: (%d,%d) kth=%d of %d", ErrNoCandidate, src, dst, kth, len(paths))
	}

	return paths[kth], nil
}

// ReselectAVB proposes newKth as avb's next candidate route, undoing its
// current traversal-set membership first if it was already placed.
func (s *Scheduler) ReselectAVB(sol *solution.Solution, id, newKth int) error {
	sel, err := sol.AVBSelection(id)
	if err != nil {
		return err
	}

	if sel.State == solution.Scheduled || sel.State == solution.Stay {
		avb, err := sol.FlowTable().AVB(id)
		if err != nil {
			return err
		}
		route, err := s.route(avb.Src, avb.Dst, sel.Kth)
		if err != nil {
			return err
		}
		for _, edge := range route {
			sol.RemoveTraversedAVB(edge, id)
		}
	}

	return sol.SetAVBSelection(id, solution.Selection{State: solution.Pending, Kth: newKth})
}

// ReselectTSN proposes newKth as tsn's next candidate route, undoing its
// current GCL reservation first if it was already placed.
func (s *Scheduler) ReselectTSN(sol *solution.Solution, id, newKth int) error {
	sel, err := sol.TSNSelection(id)
	if err != nil {
		return err
	}

	if sel.State == solution.Scheduled || sel.State == solution.Stay {
		tsn, err := sol.FlowTable().TSN(id)
		if err != nil {
			return err
		}
		route, err := s.route(tsn.Src, tsn.Dst, sel.Kth)
		if err != nil {
			return err
		}
		for _, edge := range route {
			sol.GCL().Remove(edge, id)
		}
	}

	return sol.SetTSNSelection(id, solution.Selection{State: solution.Pending, Kth: newKth})
}

func (s *Scheduler) configureAVBs(sol *solution.Solution) error {
	ft := sol.FlowTable()
	for _, id := range ft.AVBs() {
		sel, err := sol.AVBSelection(id)
		if err != nil {
			return err
		}
		if sel.State != solution.Pending {
			continue
		}

		avb, err := ft.AVB(id)
		if err != nil {
			return err
		}
		route, err := s.route(avb.Src, avb.Dst, sel.Kth)
		if err != nil {
			return err
		}
		for _, edge := range route {
			sol.AddTraversedAVB(edge, id)
		}
		if err := sol.SetAVBSelection(id, solution.Selection{State: solution.Scheduled, Kth: sel.Kth}); err != nil {
			return err
		}
	}

	return nil
}

// configureTSNs schedules every Pending TSN stream. If a full pass fails
// to place one within its deadline, the entire GCL is cleared and every
// TSN stream is rescheduled from scratch on its current candidate — a
// single stubborn stream can otherwise permanently occupy windows that a
// better global ordering would have freed up.
func (s *Scheduler) configureTSNs(sol *solution.Solution) error {
	ft := sol.FlowTable()

	var pending []int
	for _, id := range ft.TSNs() {
		sel, err := sol.TSNSelection(id)
		if err != nil {
			return err
		}
		if sel.State == solution.Pending {
			pending = append(pending, id)
		}
	}

	if err := s.tryScheduleTSNs(sol, pending); err == nil {
		return nil
	}

	s.log.Debugw("tsn schedule failed, clearing gate control list and rescheduling all streams",
		"tsnCount", ft.NumTSNs())

	sol.GCL().Clear()

	all := ft.TSNs()
	for _, id := range all {
		sel, err := sol.TSNSelection(id)
		if err != nil {
			return err
		}
		if err := sol.SetTSNSelection(id, solution.Selection{State: solution.Pending, Kth: sel.Kth}); err != nil {
			return err
		}
	}

	// Best-effort: a residual per-stream failure is reflected as Fail by
	// tryScheduleTSNs itself and surfaced to evaluator/show_results rather
	// than aborting Configure.
	_ = s.tryScheduleTSNs(sol, all)

	return nil
}

func (s *Scheduler) tryScheduleTSNs(sol *solution.Solution, ids []int) error {
	ft := sol.FlowTable()

	ordered := append([]int(nil), ids...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.lessTSN(sol, ft, ordered[i], ordered[j])
	})

	for _, id := range ordered {
		sel, err := sol.TSNSelection(id)
		if err != nil {
			return err
		}
		spec, err := ft.TSN(id)
		if err != nil {
			return err
		}
		route, err := s.route(spec.Src, spec.Dst, sel.Kth)
		if err != nil {
			return err
		}

		placed := false
		for queue := 0; queue < stream.MaxQueue; queue++ {
			sc, err := s.tryCalculateWindows(sol, id, queue)
			if err != nil {
				continue
			}
			s.insertAllocatedTSN(sol, route, id, sc, spec.Period)
			if err := sol.SetTSNSelection(id, solution.Selection{State: solution.Scheduled, Kth: sel.Kth}); err != nil {
				return err
			}
			placed = true

			break
		}

		if !placed {
			if err := sol.SetTSNSelection(id, solution.Selection{State: solution.Fail, Kth: sel.Kth}); err != nil {
				return err
			}

			return fmt.Errorf("%w: stream %d", ErrQueuesExhausted, id)
		}
	}

	return nil
}

// lessTSN orders two TSN streams: tighter deadline first, then shorter
// period, then longer route (spec.md §4.4: streams least likely to find a
// slot go first).
func (s *Scheduler) lessTSN(sol *solution.Solution, ft *flowtable.FlowTable, id1, id2 int) bool {
	spec1, _ := ft.TSN(id1)
	spec2, _ := ft.TSN(id2)

	if spec1.Deadline != spec2.Deadline {
		return spec1.Deadline < spec2.Deadline
	}
	if spec1.Period != spec2.Period {
		return spec1.Period < spec2.Period
	}

	return s.routeLen(sol, ft, id1) > s.routeLen(sol, ft, id2)
}

func (s *Scheduler) routeLen(sol *solution.Solution, ft *flowtable.FlowTable, id int) int {
	sel, err := sol.TSNSelection(id)
	if err != nil {
		return 0
	}
	spec, err := ft.TSN(id)
	if err != nil {
		return 0
	}
	route, err := s.route(spec.Src, spec.Dst, sel.Kth)
	if err != nil {
		return 0
	}

	return len(route)
}

func (s *Scheduler) tryCalculateWindows(sol *solution.Solution, id, queue int) (schedule, error) {
	ft := sol.FlowTable()
	spec, err := ft.TSN(id)
	if err != nil {
		return schedule{}, err
	}
	sel, err := sol.TSNSelection(id)
	if err != nil {
		return schedule{}, err
	}
	route, err := s.route(spec.Src, spec.Dst, sel.Kth)
	if err != nil {
		return schedule{}, err
	}

	frameLen := spec.FrameCount()
	g := sol.GCL()
	hyperperiod := g.Hyperperiod()

	windows := make([][]window, len(route))
	for r := range windows {
		windows[r] = make([]window, frameLen)
	}

	frameBits := float64(stream.MTU * stream.BitsPerByte)

	for r, edge := range route {
		for f := 0; f < frameLen; f++ {
			dur, err := s.net.DurationOn(edge, frameBits)
			if err != nil {
				return schedule{}, err
			}
			transmitTime := ceilUint32(dur)

			prevFrameDone := spec.Offset
			if f > 0 {
				prevFrameDone = windows[r][f-1].End
			}
			prevLinkDone := spec.Offset
			if r > 0 {
				prevLinkDone = windows[r-1][f].End
			}
			egress := max(prevFrameDone, prevLinkDone)

			for timeShift := uint32(0); timeShift < hyperperiod; timeShift += spec.Period {
				for {
					if next, conflict := g.GetNextEmptyTime(edge, timeShift+egress, transmitTime); conflict {
						egress = next - timeShift
						if err := assertWithinDeadline(egress+transmitTime, spec); err != nil {
							return schedule{}, err
						}

						continue
					}

					if r+1 < len(route) {
						nextEdge := route[r+1]
						at := timeShift + egress + transmitTime
						if next, conflict := g.GetNextQueueEmptyTime(nextEdge, queue, at); conflict {
							egress = next - timeShift
							if err := assertWithinDeadline(egress+transmitTime, spec); err != nil {
								return schedule{}, err
							}

							continue
						}
					}

					if err := assertWithinDeadline(egress+transmitTime, spec); err != nil {
						return schedule{}, err
					}

					break
				}
			}

			windows[r][f] = window{Start: egress, End: egress + transmitTime}
		}
	}

	return schedule{windows: windows, queue: queue}, nil
}

func (s *Scheduler) insertAllocatedTSN(sol *solution.Solution, route network.Path, id int, sc schedule, period uint32) {
	g := sol.GCL()
	hyperperiod := g.Hyperperiod()

	for r, edge := range route {
		for f := range sc.windows[r] {
			for timeShift := uint32(0); timeShift < hyperperiod; timeShift += period {
				w := sc.windows[r][f]
				g.InsertGateEvt(edge, id, window{Start: timeShift + w.Start, End: timeShift + w.End})

				if r == 0 {
					continue
				}
				prevW := sc.windows[r-1][f]
				g.InsertQueueEvt(edge, sc.queue, id, window{Start: timeShift + prevW.Start, End: timeShift + w.Start})
			}
		}
	}
}

func assertWithinDeadline(arrival uint32, spec stream.TSN) error {
	delay := arrival - spec.Offset
	if delay <= spec.Deadline {
		return nil
	}

	return fmt.Errorf("%w: arrival %d exceeds offset %d + deadline %d", ErrDeadlineExceeded, arrival, spec.Offset, spec.Deadline)
}

func ceilUint32(v float64) uint32 {
	u := uint32(v)
	if float64(u) < v {
		u++
	}

	return u
}
