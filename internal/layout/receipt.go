package layout

// DefaultUnit is the unit label that lets a line print on a single row
const DefaultUnit = "Unit(s)"

// Receipt describes a completed sale as sent by the point of sale
type Receipt struct {
	Company       Company       `json:"company"`
	OrderLines    []OrderLine   `json:"orderlines"`
	PaymentLines  []PaymentLine `json:"paymentlines"`
	TaxDetails    []TaxDetail   `json:"tax_details"`
	Subtotal      float64       `json:"subtotal"`
	TotalWithTax  float64       `json:"total_with_tax"`
	TotalTax      float64       `json:"total_tax"`
	TotalDiscount float64       `json:"total_discount"`
	Change        float64       `json:"change"`
	Header        string        `json:"header"`
	Footer        string        `json:"footer"`
	Cashier       string        `json:"cashier"`
	Name          string        `json:"name"`
	Barcode       string        `json:"barcode,omitempty"`
	Date          Date          `json:"date"`
	Precision     Precision     `json:"precision"`
}

// Company is the receipt header
type Company struct {
	Name           string `json:"name"`
	Logo           string `json:"logo"`
	ContactAddress string `json:"contact_address"`
	Phone          string `json:"phone"`
	VAT            string `json:"vat"`
	Email          string `json:"email"`
	Website        string `json:"website"`
}

type OrderLine struct {
	ProductName  string  `json:"product_name"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	PriceDisplay float64 `json:"price_display"`
	Discount     float64 `json:"discount"`
	UnitName     string  `json:"unit_name"`
}

type PaymentLine struct {
	Journal string  `json:"journal"`
	Amount  float64 `json:"amount"`
}

type TaxDetail struct {
	Tax    Tax     `json:"tax"`
	Amount float64 `json:"amount"`
}

type Tax struct {
	Name string `json:"name"`
}

// Date is the sale time. Month is zero based.
type Date struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"date"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Precision is the number of decimals per amount category
type Precision struct {
	Price    int `json:"price"`
	Money    int `json:"money"`
	Quantity int `json:"quantity"`
}
