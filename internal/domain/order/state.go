package order

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	OnPaymentSucceeded(o *Order) (OrderState, error)
	OnAdvance(o *Order, target Status) (OrderState, error)
	OnCancel(o *Order) (OrderState, error)
}

var progression = map[Status]int{
	StatusCreated:   0,
	StatusPaid:      1,
	StatusPacked:    2,
	StatusShipped:   3,
	StatusDelivered: 4,
}

// ParseStatus validates a wire status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := progression[s]; ok || s == StatusCancelled {
		return s, nil
	}
	return "", ErrInvalidStatus
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	}
	if _, ok := progression[s]; ok {
		return progressState{status: s}, nil
	}
	return nil, ErrInvalidStatus
}

// progressState covers Created, Paid, Packed and Shipped: forward moves and cancellation are allowed.
type progressState struct{ status Status }

func (s progressState) Status() Status { return s.status }

func (s progressState) OnPaymentSucceeded(*Order) (OrderState, error) {
	if progression[s.status] < progression[StatusPaid] {
		return progressState{status: StatusPaid}, nil
	}
	return s, nil
}

func (s progressState) OnAdvance(_ *Order, target Status) (OrderState, error) {
	if target == s.status {
		return s, nil
	}
	rank, ok := progression[target]
	if !ok || rank < progression[s.status] {
		return nil, ErrInvalidStateTransition
	}
	return stateFor(target)
}

func (progressState) OnCancel(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) OnPaymentSucceeded(*Order) (OrderState, error) {
	return deliveredState{}, nil
}

func (deliveredState) OnAdvance(_ *Order, target Status) (OrderState, error) {
	if target == StatusDelivered {
		return deliveredState{}, nil
	}
	return nil, ErrInvalidStateTransition
}

func (deliveredState) OnCancel(*Order) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

// A late payment on a cancelled order settles the payment but never revives the order.
func (cancelledState) OnPaymentSucceeded(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

func (cancelledState) OnAdvance(*Order, Status) (OrderState, error) {
	return nil, ErrInvalidStateTransition
}

func (cancelledState) OnCancel(*Order) (OrderState, error) {
	return cancelledState{}, nil
}

// TransitionTo moves the order to target following the lifecycle rules.
func (o *Order) TransitionTo(target Status) error {
	if _, err := stateFor(target); err != nil {
		return err
	}
	current, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	var next OrderState
	if target == StatusCancelled {
		next, err = current.OnCancel(o)
	} else {
		next, err = current.OnAdvance(o, target)
	}
	if err != nil {
		return err
	}
	o.apply(next)
	return nil
}

// ReleasesStockOnCancel reports whether cancelling from the current status returns stock.
func (o *Order) ReleasesStockOnCancel() bool {
	rank, ok := progression[o.Status]
	return ok && rank < progression[StatusShipped]
}

// MarkPaid records a confirmed gateway payment.
func (o *Order) MarkPaid() error {
	if o.PaymentStatus == PaymentRefunded {
		return ErrInvalidStateTransition
	}
	current, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	next, err := current.OnPaymentSucceeded(o)
	if err != nil {
		return err
	}
	o.PaymentStatus = PaymentPaid
	o.apply(next)
	return nil
}

// MarkPaymentFailed records a failed gateway attempt; order status and stock are left alone.
func (o *Order) MarkPaymentFailed() error {
	if o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentRefunded {
		return ErrInvalidStateTransition
	}
	o.PaymentStatus = PaymentFailed
	o.touch()
	return nil
}

// ReopenPayment puts a failed payment back to pending for a new gateway attempt.
func (o *Order) ReopenPayment() error {
	switch o.PaymentStatus {
	case PaymentPending:
		return nil
	case PaymentFailed:
		o.PaymentStatus = PaymentPending
		o.touch()
		return nil
	default:
		return ErrInvalidStateTransition
	}
}

func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentPaid {
		return ErrInvalidStateTransition
	}
	o.PaymentStatus = PaymentRefunded
	o.touch()
	return nil
}

func (o *Order) apply(next OrderState) {
	o.Status = next.Status()
	o.touch()
}
