package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/enum"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/payment"
	"github.com/mavi-pizzeria/api/internal/printjob"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	commits   int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// memStore is an in-memory OrderStore and CatalogReader. Writes apply
// immediately; transactions are not isolated.
type memStore struct {
	mu sync.Mutex

	products map[uuid.UUID]database.GetProductForOrderRow
	rules    map[uuid.UUID][]database.ListProductCustomizationsRow

	orders   map[uuid.UUID]database.Order
	items    []database.OrderItem
	custs    []database.OrderItemCustomization
	payments map[uuid.UUID]database.Payment

	// createOrderErrs is consumed one entry per CreateOrder call.
	createOrderErrs []error
	orderNumbers    []string
	getOrderCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]database.GetProductForOrderRow),
		rules:    make(map[uuid.UUID][]database.ListProductCustomizationsRow),
		orders:   make(map[uuid.UUID]database.Order),
		payments: make(map[uuid.UUID]database.Payment),
	}
}

func (m *memStore) addProduct(name, price string) uuid.UUID {
	id := uuid.New()
	m.products[id] = database.GetProductForOrderRow{
		ID:             id,
		Name:           name,
		Price:          makeNumeric(price),
		IsAvailable:    true,
		IsCustomizable: true,
		CategoryActive: true,
	}
	return id
}

func (m *memStore) addRule(productID uuid.UUID, ingredient, action, price string) uuid.UUID {
	ingID := uuid.New()
	m.rules[productID] = append(m.rules[productID], database.ListProductCustomizationsRow{
		ID:                  uuid.New(),
		ProductID:           productID,
		IngredientID:        ingID,
		IngredientName:      ingredient,
		Action:              action,
		Price:               makeNumeric(price),
		IngredientAvailable: true,
	})
	return ingID
}

func (m *memStore) GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error) {
	p, ok := m.products[id]
	if !ok {
		return database.GetProductForOrderRow{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListProductCustomizations(ctx context.Context, productID uuid.UUID) ([]database.ListProductCustomizationsRow, error) {
	return m.rules[productID], nil
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderNumbers = append(m.orderNumbers, arg.OrderNumber)
	if len(m.createOrderErrs) > 0 {
		err := m.createOrderErrs[0]
		m.createOrderErrs = m.createOrderErrs[1:]
		if err != nil {
			return database.Order{}, err
		}
	}
	now := time.Now()
	o := database.Order{
		ID:                    uuid.New(),
		OrderNumber:           arg.OrderNumber,
		UserID:                arg.UserID,
		Status:                enum.OrderStatusPending,
		DeliveryType:          arg.DeliveryType,
		DeliveryStreet:        arg.DeliveryStreet,
		DeliveryPostalCode:    arg.DeliveryPostalCode,
		DeliveryCity:          arg.DeliveryCity,
		DeliveryInstructions:  arg.DeliveryInstructions,
		CustomerName:          arg.CustomerName,
		CustomerEmail:         arg.CustomerEmail,
		CustomerPhone:         arg.CustomerPhone,
		PaymentMethod:         arg.PaymentMethod,
		Subtotal:              arg.Subtotal,
		Tax:                   arg.Tax,
		DeliveryFee:           arg.DeliveryFee,
		Total:                 arg.Total,
		CustomerNotes:         arg.CustomerNotes,
		EstimatedDeliveryTime: arg.EstimatedDeliveryTime,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := database.OrderItem{
		ID:                  uuid.New(),
		OrderID:             arg.OrderID,
		ProductID:           arg.ProductID,
		ProductName:         arg.ProductName,
		Quantity:            arg.Quantity,
		UnitPrice:           arg.UnitPrice,
		TotalPrice:          arg.TotalPrice,
		SpecialInstructions: arg.SpecialInstructions,
		CreatedAt:           time.Now(),
	}
	m.items = append(m.items, it)
	return it, nil
}

func (m *memStore) CreateOrderItemCustomization(ctx context.Context, arg database.CreateOrderItemCustomizationParams) (database.OrderItemCustomization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := database.OrderItemCustomization{
		ID:             uuid.New(),
		OrderItemID:    arg.OrderItemID,
		IngredientID:   arg.IngredientID,
		IngredientName: arg.IngredientName,
		Action:         arg.Action,
		Price:          arg.Price,
	}
	m.custs = append(m.custs, c)
	return c, nil
}

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := database.Payment{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		Provider:  arg.Provider,
		Status:    arg.Status,
		Amount:    arg.Amount,
		Currency:  arg.Currency,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.payments[arg.OrderID] = p
	return p, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrderCalls++
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.OrderItem
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) ListOrderItemCustomizationsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemCustomization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := make(map[uuid.UUID]bool)
	for _, it := range m.items {
		if it.OrderID == orderID {
			owned[it.ID] = true
		}
	}
	var out []database.OrderItemCustomization
	for _, c := range m.custs {
		if owned[c.OrderItemID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.Status_2 {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.UpdatedAt = time.Now()
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) SetPaymentTransaction(ctx context.Context, arg database.SetPaymentTransactionParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.OrderID]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.TransactionID = arg.TransactionID
	m.payments[arg.OrderID] = p
	return p, nil
}

func (m *memStore) CompletePayment(ctx context.Context, arg database.CompletePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.OrderID]
	if !ok || p.Status == enum.PaymentStatusCompleted {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.Status = enum.PaymentStatusCompleted
	if arg.TransactionID.Valid {
		p.TransactionID = arg.TransactionID
	}
	m.payments[arg.OrderID] = p
	return p, nil
}

func (m *memStore) FailPayment(ctx context.Context, arg database.FailPaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.OrderID]
	if !ok || p.Status != enum.PaymentStatusPending {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.Status = enum.PaymentStatusFailed
	m.payments[arg.OrderID] = p
	return p, nil
}

func (m *memStore) orderStatus(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

func (m *memStore) paymentStatus(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[id].Status
}

// emitted is one recorded real-time event.
type emitted struct {
	room    string
	event   string
	payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) Emit(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{room: room, event: event, payload: payload})
}

func (f *fakeEmitter) rooms(event string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e.room)
		}
	}
	sort.Strings(out)
	return out
}

type fakePrinter struct {
	mu     sync.Mutex
	err    error
	orders []printjob.Order
}

func (f *fakePrinter) Enqueue(ctx context.Context, o printjob.Order) (printjob.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return printjob.Job{}, f.err
	}
	f.orders = append(f.orders, o)
	return printjob.Job{ID: uuid.New(), Status: enum.PrintJobStatusPending}, nil
}

func (f *fakePrinter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (f *fakePublisher) PublishOrderEvent(ctx context.Context, ev events.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeProvider counts calls and returns canned results.
type fakeProvider struct {
	mu         sync.Mutex
	creates    int
	createRes  payment.CreateResult
	createErr  error
	webhookRes payment.WebhookResult
	webhookErr error
}

func (f *fakeProvider) CreatePayment(ctx context.Context, req payment.CreateRequest) (payment.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return f.createRes, f.createErr
}

func (f *fakeProvider) ProcessWebhook(ctx context.Context, wh payment.Webhook) (payment.WebhookResult, error) {
	return f.webhookRes, f.webhookErr
}

func (f *fakeProvider) GetStatus(ctx context.Context, transactionID string) (payment.StatusResult, error) {
	return payment.StatusResult{Status: enum.PaymentStatusPending}, nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// harness wires every service against one memStore.
type harness struct {
	store     *memStore
	tx        *mockTx
	emitter   *fakeEmitter
	printer   *fakePrinter
	publisher *fakePublisher
	card      *fakeProvider
	tasks     *Tasks
	registry  *payment.Registry

	orders    *OrderService
	lifecycle *Lifecycle
	payments  *PaymentService
}

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		tx:        &mockTx{},
		emitter:   &fakeEmitter{},
		printer:   &fakePrinter{},
		publisher: &fakePublisher{},
		card:      &fakeProvider{},
		tasks:     NewTasks(),
	}
	h.registry = &payment.Registry{
		Stripe: h.card,
		Epassi: payment.NewEpassi("https://shop.example"),
		Cash:   payment.Cash{},
		Mock:   payment.NewMock("https://shop.example"),
	}
	pool := &mockTxBeginner{tx: h.tx}
	newStore := func(db database.DBTX) OrderStore { return h.store }
	notifier := NewNotifier(h.emitter)

	h.orders = NewOrderService(pool, newStore, NewOrderValidator(h.store), h.registry, notifier, h.publisher, h.tasks)
	h.lifecycle = NewLifecycle(pool, h.store, newStore, notifier, h.printer, h.publisher, h.tasks)
	h.payments = NewPaymentService(h.store, h.registry, h.lifecycle)
	return h
}

// drain waits for detached tasks.
func (h *harness) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.tasks.Drain(ctx); err != nil {
		panic(errors.New("detached tasks did not finish"))
	}
}

// placeOrder creates a pickup order of one Margherita with the given method.
func (h *harness) placeOrder(method string, userID *uuid.UUID) *OrderDetail {
	productID := h.store.addProduct("Margherita", "12.90")
	d, err := h.orders.CreateOrder(context.Background(), CreateOrderRequest{
		UserID:        userID,
		Items:         []CartItem{{ProductID: productID, Quantity: 1}},
		DeliveryType:  enum.DeliveryTypePickup,
		PaymentMethod: method,
		CustomerName:  "Matti",
		CustomerEmail: "matti@example.fi",
	})
	if err != nil {
		panic(err)
	}
	return d
}
