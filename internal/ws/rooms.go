package ws

// AdminRoom is shared by all staff clients.
const AdminRoom = "admin"

func OrderRoom(orderID string) string   { return "order:" + orderID }
func UserRoom(userID string) string     { return "user:" + userID }
func PrinterRoom(storeID string) string { return "printer:" + storeID }

// Server events.
const (
	EventOrderStatusChanged  = "order:statusChanged"
	EventAdminNewOrder       = "admin:newOrder"
	EventPrintJobCreated     = "print:job:created"
	EventPrinterConfigUpdate = "printer:config:update"
)

// Client messages.
const (
	MessageJoin     = "join"
	MessagePrinters = "printers"
)
