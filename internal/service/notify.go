package service

import (
	"github.com/mavi-pizzeria/api/internal/ws"
)

// Emitter delivers real-time events. Satisfied by *ws.Hub.
type Emitter interface {
	Emit(room, event string, payload any)
}

// Notifier fans order changes out to the rooms that watch them.
type Notifier struct {
	emitter Emitter
}

func NewNotifier(emitter Emitter) *Notifier {
	return &Notifier{emitter: emitter}
}

// NewOrder tells staff about a created order.
func (n *Notifier) NewOrder(d *OrderDetail) {
	n.emitter.Emit(ws.AdminRoom, ws.EventAdminNewOrder, d)
}

// StatusChanged notifies the order room, the owner's room and staff.
// Staff receive the full order.
func (n *Notifier) StatusChanged(d *OrderDetail) {
	change := d.StatusChange()
	n.emitter.Emit(ws.OrderRoom(d.ID.String()), ws.EventOrderStatusChanged, change)
	if d.UserID != nil {
		n.emitter.Emit(ws.UserRoom(d.UserID.String()), ws.EventOrderStatusChanged, change)
	}
	n.emitter.Emit(ws.AdminRoom, ws.EventOrderStatusChanged, d)
}

// Confirmed is sent once per order when it first reaches CONFIRMED.
// Confirmation is when the kitchen commits, so staff get it as a new order.
func (n *Notifier) Confirmed(d *OrderDetail) {
	n.StatusChanged(d)
	n.emitter.Emit(ws.AdminRoom, ws.EventAdminNewOrder, d)
}
