package domain

import "fmt"

// InvalidTransitionError reports a status edge that does not exist from the
// order's current state, or a guard condition that was not met.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition order from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// allowedSources is the canonical transition table, before type, actor, and
// payment guards. Terminal states have no entry on the source side anywhere.
var allowedSources = map[Status][]Status{
	StatusPreparing:  {StatusPending},
	StatusReady:      {StatusPreparing},
	StatusDelivering: {StatusReady},
	StatusCompleted:  {StatusReady, StatusDelivering},
	StatusRejected:   {StatusPending, StatusPreparing, StatusReady},
	StatusCancelled:  {StatusPending},
}

// transitionActors limits which roles may request each edge.
var transitionActors = map[Status][]ActorRole{
	StatusPreparing:  {ActorMerchant},
	StatusReady:      {ActorMerchant},
	StatusDelivering: {ActorMerchant, ActorCourier},
	StatusCompleted:  {ActorCustomer, ActorMerchant, ActorCourier},
	StatusRejected:   {ActorMerchant},
	StatusCancelled:  {ActorCustomer, ActorSystem},
}

// TransitionTo drives the order through one edge of the status graph. It
// returns false with a nil error for a duplicate completion request, which is
// accepted idempotently and must not re-trigger side effects.
func (o *Order) TransitionTo(target Status, actor ActorRole, reason string) (bool, error) {
	if o.Status == StatusCompleted && target == StatusCompleted {
		return false, nil
	}
	if o.Terminal() {
		return false, InvalidTransitionError{From: o.Status, To: target, Reason: "order is in a terminal state"}
	}
	sources, known := allowedSources[target]
	if !known {
		return false, InvalidTransitionError{From: o.Status, To: target, Reason: "unknown target status"}
	}
	if !containsStatus(sources, o.Status) {
		return false, InvalidTransitionError{From: o.Status, To: target}
	}
	if !containsActor(transitionActors[target], actor) {
		return false, InvalidTransitionError{From: o.Status, To: target, Reason: fmt.Sprintf("actor %s may not request this transition", actor)}
	}
	if err := o.guardTransition(target); err != nil {
		return false, err
	}
	o.Status = target
	if target == StatusRejected || target == StatusCancelled {
		o.CancelReason = reason
	}
	return true, nil
}

func (o *Order) guardTransition(target Status) error {
	switch target {
	case StatusPreparing:
		if !o.paymentSettled() {
			return InvalidTransitionError{From: o.Status, To: target, Reason: "payment is not settled"}
		}
	case StatusDelivering:
		if o.Type != TypeDelivery {
			return InvalidTransitionError{From: o.Status, To: target, Reason: "pickup orders are never delivered"}
		}
	case StatusCompleted:
		// Pickup completes straight from ready; delivery must pass through
		// delivering first.
		if o.Type == TypePickup && o.Status != StatusReady {
			return InvalidTransitionError{From: o.Status, To: target, Reason: "pickup orders complete from ready"}
		}
		if o.Type == TypeDelivery && o.Status != StatusDelivering {
			return InvalidTransitionError{From: o.Status, To: target, Reason: "delivery orders complete from delivering"}
		}
	}
	return nil
}

// paymentSettled gates preparation: confirmed online payment, or pay-on-
// collection for pickup orders.
func (o *Order) paymentSettled() bool {
	if o.PaymentStatus == PaymentConfirmed {
		return true
	}
	return o.Type == TypePickup && o.PaymentStatus == PaymentNotRequired
}

// ReleasesInventory reports whether entering target hands reserved stock back.
func ReleasesInventory(target Status) bool {
	return target == StatusRejected || target == StatusCancelled
}

// NotifiesOutward reports whether reaching status emits a transition event.
// Ready is an internal milestone gating delivering/completed eligibility and
// never notifies either order type.
func NotifiesOutward(status Status) bool {
	return status != StatusReady
}

func containsStatus(list []Status, s Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsActor(list []ActorRole, a ActorRole) bool {
	for _, candidate := range list {
		if candidate == a {
			return true
		}
	}
	return false
}
