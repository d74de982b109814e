package httpapi

// Денежные значения ходят по проводу строками, чтобы не терять точность
// в JSON-числах с плавающей точкой.

type createProductRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

type updatePriceRequest struct {
	Price string `json:"price"`
}

type productResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type setCustomerRequest struct {
	Name string `json:"name"`
}

type cartLineResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type cartResponse struct {
	OrderID  int64              `json:"order_id"`
	Customer string             `json:"customer"`
	Status   string             `json:"status"`
	Lines    []cartLineResponse `json:"lines"`
	Subtotal string             `json:"subtotal"`
	Tax      string             `json:"tax"`
	Discount string             `json:"discount"`
	Total    string             `json:"total"`
}

type checkoutRequest struct {
	Discount string `json:"discount,omitempty"`
}

type receiptResponse struct {
	OrderID     int64              `json:"order_id"`
	Customer    string             `json:"customer"`
	Lines       []cartLineResponse `json:"lines"`
	Subtotal    string             `json:"subtotal"`
	Tax         string             `json:"tax"`
	Discount    string             `json:"discount"`
	Total       string             `json:"total"`
	CommittedAt string             `json:"committed_at"`
}

type dailyReportResponse struct {
	OrderCount        int    `json:"order_count"`
	TotalSales        string `json:"total_sales"`
	AverageOrderValue string `json:"average_order_value"`
}

type itemSalesResponse struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
