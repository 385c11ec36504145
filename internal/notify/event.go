package notify

import (
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
)

// Event describes an order change worth telling admins about.
type Event struct {
	Type         string      `json:"type"`
	ID           int64       `json:"id"`
	OrderID      string      `json:"order_id"`
	CustomerName string      `json:"customer_name"`
	Total        string      `json:"total"`
	Status       string      `json:"status"`
	OrderStatus  string      `json:"order_status"`
	Source       string      `json:"source"`
	Items        []EventItem `json:"items"`
	At           time.Time   `json:"at"`
}

type EventItem struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
}

// OrderEvent builds an event of the given type from a persisted order.
func OrderEvent(eventType string, o database.Order) Event {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{Name: it.Name, Quantity: it.Quantity})
	}
	return Event{
		Type:         eventType,
		ID:           o.ID,
		OrderID:      o.OrderID,
		CustomerName: o.CustomerName,
		Total:        database.FormatNumeric(o.TotalPrice),
		Status:       string(o.Status),
		OrderStatus:  string(o.OrderStatus),
		Source:       string(o.Source),
		Items:        items,
		At:           time.Now().UTC(),
	}
}

