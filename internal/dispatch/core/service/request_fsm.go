package service

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	fsmutil "github.com/rapidaid-io/rapidaid/internal/pkg/util/fsm"
)

// Strict lifecycle events. Every edge of the request graph is one of these.
const (
	eventAccept  = "accept"
	eventDecline = "decline"
	eventAdvance = "advance"
	eventCancel  = "cancel"

	// setPrefix names the permissive any -> any events used by UpdateStatus.
	setPrefix = "set_"
)

var (
	// advancePath is the happy path of a request after acceptance.
	advancePath = []model.RequestStatus{
		model.RequestAccepted,
		model.RequestEnRouteToUser,
		model.RequestAtUserLocation,
		model.RequestTransporting,
		model.RequestAtHospital,
		model.RequestCompleted,
	}

	cancellable = []model.RequestStatus{
		model.RequestPending,
		model.RequestAccepted,
		model.RequestEnRouteToUser,
		model.RequestAtUserLocation,
		model.RequestTransporting,
	}

	requestEvents = buildRequestEvents()

	// strictEdges maps from -> to -> event name for the lifecycle graph.
	strictEdges = buildStrictEdges(requestEvents)
)

func buildRequestEvents() fsm.Events {
	events := fsm.Events{
		{Name: eventAccept, Src: []string{string(model.RequestPending)}, Dst: string(model.RequestAccepted)},
		{Name: eventDecline, Src: []string{string(model.RequestPending)}, Dst: string(model.RequestDeclined)},
		{Name: eventCancel, Src: statusNames(cancellable), Dst: string(model.RequestCancelled)},
	}
	for i := 0; i+1 < len(advancePath); i++ {
		events = append(events, fsm.EventDesc{
			Name: eventAdvance,
			Src:  []string{string(advancePath[i])},
			Dst:  string(advancePath[i+1]),
		})
	}

	all := statusNames(model.RequestStatuses)
	for _, st := range model.RequestStatuses {
		events = append(events, fsm.EventDesc{Name: setPrefix + string(st), Src: all, Dst: string(st)})
	}
	return events
}

func buildStrictEdges(events fsm.Events) map[model.RequestStatus]map[model.RequestStatus]string {
	edges := make(map[model.RequestStatus]map[model.RequestStatus]string)
	for _, e := range events {
		if len(e.Name) > len(setPrefix) && e.Name[:len(setPrefix)] == setPrefix {
			continue
		}
		for _, src := range e.Src {
			from := model.RequestStatus(src)
			if edges[from] == nil {
				edges[from] = make(map[model.RequestStatus]string)
			}
			edges[from][model.RequestStatus(e.Dst)] = e.Name
		}
	}
	return edges
}

// isLifecycleEdge reports whether from -> to is part of the request graph.
// Every other jump is only reachable through the permissive set_ events.
func isLifecycleEdge(from, to model.RequestStatus) bool {
	_, ok := strictEdges[from][to]
	return ok
}

// eventFor returns the strict event for from -> to, or the permissive one.
func eventFor(from, to model.RequestStatus) (name string, strict bool) {
	if name, ok := strictEdges[from][to]; ok {
		return name, true
	}
	return setPrefix + string(to), false
}

// newRequestFSM builds a machine positioned at the request's status. Entering
// a state writes the status and its timestamp back to req.
func newRequestFSM(req *model.EmergencyRequest, now func() time.Time, extra fsm.Callbacks) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			ts := now().UTC()
			req.Status = model.RequestStatus(e.Dst)
			req.UpdatedAt = ts
			stamp(req, req.Status, ts)
		},
	}
	for k, v := range extra {
		callbacks[k] = v
	}
	return fsm.NewFSM(string(req.Status), requestEvents, callbacks)
}

// fire runs one event and unwraps guard errors. A no-op transition is not an error.
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	return fsmutil.Cause(fsmutil.IgnoreNoTransition(m.Event(ctx, event)))
}

func stamp(req *model.EmergencyRequest, st model.RequestStatus, ts time.Time) {
	switch st {
	case model.RequestAccepted:
		req.AcceptedAt = &ts
	case model.RequestDeclined:
		req.DeclinedAt = &ts
	case model.RequestCompleted:
		req.CompletedAt = &ts
	case model.RequestCancelled:
		req.CancelledAt = &ts
	}
}

func statusNames(sts []model.RequestStatus) []string {
	out := make([]string, 0, len(sts))
	for _, st := range sts {
		out = append(out, string(st))
	}
	return out
}
