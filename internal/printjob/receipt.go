// Package printjob turns confirmed orders into receipts and hands them to
// printer agents through a durable claim-based queue.
package printjob

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Shop is the receipt header. It is fixed at construction.
type Shop struct {
	Name     string
	Address  string
	Phone    string
	Location *time.Location
}

// Order is the snapshot a receipt is built from.
type Order struct {
	ID            uuid.UUID
	Number        string
	DeliveryType  string
	PaymentMethod string
	Items         []Item
	Subtotal      decimal.Decimal
	DeliveryFee   decimal.Decimal
	Total         decimal.Decimal
	CustomerName  string
	CustomerPhone string
	// Address is empty for pickup orders.
	Address string
	Notes   string
}

type Item struct {
	Quantity       int32
	Name           string
	Total          decimal.Decimal
	Customizations []Customization
}

type Customization struct {
	Name  string
	Price decimal.Decimal
}

// Money renders as a JSON number with two decimals.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

func (m Money) String() string { return decimal.Decimal(m).StringFixed(2) }

// --- Receipt document ---

// Receipt is the structured document stored as a job's content. Agents
// render it to ESC/POS; the server never reads it back.
type Receipt struct {
	Header   ReceiptHeader   `json:"header"`
	Meta     ReceiptMeta     `json:"meta"`
	Items    []ReceiptItem   `json:"items"`
	Totals   ReceiptTotals   `json:"totals"`
	Customer ReceiptCustomer `json:"customer"`
}

type ReceiptHeader struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type ReceiptMeta struct {
	OrderNumber   string `json:"orderNumber"`
	Date          string `json:"date"`
	DeliveryType  string `json:"deliveryType"`
	PaymentMethod string `json:"paymentMethod"`
}

type ReceiptItem struct {
	Quantity       int32                 `json:"quantity"`
	Name           string                `json:"name"`
	Price          Money                 `json:"price"`
	Customizations []ReceiptCustomization `json:"customizations"`
}

type ReceiptCustomization struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

type ReceiptTotals struct {
	Total       Money `json:"total"`
	Subtotal    Money `json:"subtotal"`
	DeliveryFee Money `json:"deliveryFee"`
}

type ReceiptCustomer struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

const (
	receiptDateLayout = "2.1.2006 klo 15.04.05"
	guestName         = "Vieras"
	fallbackItemName  = "Tuote"
	receiptRule       = "--------------------------------"
)

var paymentLabels = map[string]string{
	enum.PaymentMethodCard:         "KORTTI",
	enum.PaymentMethodCash:         "KÄTEINEN",
	enum.PaymentMethodVerkkomaksu:  "VERKKOMAKSU",
	enum.PaymentMethodLounasseteli: "LOUNASSETELI",
	enum.PaymentMethodEpassi:       "EPASSI",
}

// BuildReceipt lays out o for printing at time now.
func BuildReceipt(shop Shop, o Order, now time.Time) Receipt {
	loc := shop.Location
	if loc == nil {
		loc = time.UTC
	}

	deliveryType := "NOUTO"
	if o.DeliveryType == enum.DeliveryTypeDelivery {
		deliveryType = "KULJETUS"
	}
	payment, ok := paymentLabels[o.PaymentMethod]
	if !ok {
		payment = o.PaymentMethod
	}

	items := make([]ReceiptItem, 0, len(o.Items))
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = fallbackItemName
		}
		custs := make([]ReceiptCustomization, 0, len(it.Customizations))
		for _, c := range it.Customizations {
			custs = append(custs, ReceiptCustomization{Name: c.Name, Price: Money(c.Price)})
		}
		items = append(items, ReceiptItem{
			Quantity:       it.Quantity,
			Name:           name,
			Price:          Money(it.Total),
			Customizations: custs,
		})
	}

	customer := ReceiptCustomer{Name: strings.TrimSpace(o.CustomerName), Phone: o.CustomerPhone}
	if customer.Name == "" {
		customer.Name = guestName
	}
	if o.Address != "" {
		addr := o.Address
		customer.Address = &addr
	}
	if o.Notes != "" {
		notes := o.Notes
		customer.Notes = &notes
	}

	return Receipt{
		Header: ReceiptHeader{Title: shop.Name, Address: shop.Address, Phone: shop.Phone},
		Meta: ReceiptMeta{
			OrderNumber:   o.Number,
			Date:          now.In(loc).Format(receiptDateLayout),
			DeliveryType:  deliveryType,
			PaymentMethod: payment,
		},
		Items: items,
		Totals: ReceiptTotals{
			Total:       Money(o.Total),
			Subtotal:    Money(o.Subtotal),
			DeliveryFee: Money(o.DeliveryFee),
		},
		Customer: customer,
	}
}

// PreviewText renders r as the plain 32-column text shown in the admin UI.
func PreviewText(r Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "            %s\n", r.Header.Title)
	fmt.Fprintf(&b, "           %s\n", r.Header.Address)
	fmt.Fprintf(&b, "             %s\n\n", r.Header.Phone)
	fmt.Fprintf(&b, "Tilaus: #%s\n", r.Meta.OrderNumber)
	fmt.Fprintf(&b, "Pvm:    %s\n", r.Meta.Date)
	fmt.Fprintf(&b, "Tyyppi: %s\n", r.Meta.DeliveryType)
	fmt.Fprintf(&b, "Maksu:  %s\n", r.Meta.PaymentMethod)
	b.WriteString(receiptRule + "\n")

	for _, it := range r.Items {
		fmt.Fprintf(&b, "%dx %-20s %s\n", it.Quantity, it.Name, it.Price)
		for _, c := range it.Customizations {
			fmt.Fprintf(&b, "   + %s (%se)\n", c.Name, c.Price)
		}
	}

	b.WriteString(receiptRule + "\n")
	fmt.Fprintf(&b, "Yhteensa:             %s EUR\n", r.Totals.Total)
	b.WriteString(receiptRule + "\n")
	b.WriteString("Asiakas:\n")
	b.WriteString(r.Customer.Name + "\n")
	if r.Customer.Phone != "" {
		b.WriteString(r.Customer.Phone + "\n")
	}
	if r.Customer.Address != nil {
		b.WriteString(*r.Customer.Address + "\n")
	}
	if r.Customer.Notes != nil {
		fmt.Fprintf(&b, "\nHUOM:\n%s\n", *r.Customer.Notes)
	}
	b.WriteString("\n       Kiitos tilauksesta!\n")
	return b.String()
}

// SampleOrder is used for preview and test prints.
func SampleOrder() Order {
	return Order{
		Number:        "TEST-0001",
		DeliveryType:  enum.DeliveryTypeDelivery,
		PaymentMethod: enum.PaymentMethodCard,
		Items: []Item{
			{
				Quantity: 1,
				Name:     "Margherita",
				Total:    decimal.RequireFromString("15.40"),
				Customizations: []Customization{
					{Name: "Extra Cheese", Price: decimal.RequireFromString("2.50")},
				},
			},
			{Quantity: 2, Name: "Coca-Cola 0.5l", Total: decimal.RequireFromString("7.00")},
		},
		Subtotal:      decimal.RequireFromString("22.40"),
		DeliveryFee:   decimal.RequireFromString("5.00"),
		Total:         decimal.RequireFromString("30.54"),
		CustomerName:  "Testi Asiakas",
		CustomerPhone: "+358 40 000 0000",
		Address:       "Testikatu 1, 00100 Helsinki",
		Notes:         "Ovikoodi 1234",
	}
}
