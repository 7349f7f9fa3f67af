package protocol

// Symbol is the returnData of getSymbol and one element of getAllSymbols.
type Symbol struct {
	Symbol       string  `json:"symbol"`
	Description  string  `json:"description"`
	CategoryName string  `json:"categoryName"`
	GroupName    string  `json:"groupName"`
	Currency     string  `json:"currency"`
	Ask          float64 `json:"ask"`
	Bid          float64 `json:"bid"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	LotMin       float64 `json:"lotMin"`
	LotMax       float64 `json:"lotMax"`
	LotStep      float64 `json:"lotStep"`
	Precision    int64   `json:"precision"`
	ContractSize int64   `json:"contractSize"`
	SpreadRaw    float64 `json:"spreadRaw"`
	SpreadTable  float64 `json:"spreadTable"`
	Time         int64   `json:"time"`
}

// Version is the returnData of getVersion.
type Version struct {
	Version string `json:"version"`
}

// MarginLevel is the returnData of getMarginLevel.
type MarginLevel struct {
	Balance     float64 `json:"balance"`
	Credit      float64 `json:"credit"`
	Currency    string  `json:"currency"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
}

// Transaction describes an order to open, modify or close.
type Transaction struct {
	Cmd           int     `json:"cmd"`
	CustomComment string  `json:"customComment"`
	Expiration    int64   `json:"expiration"`
	Offset        int64   `json:"offset"`
	Order         int64   `json:"order"`
	Price         float64 `json:"price"`
	SL            float64 `json:"sl"`
	Symbol        string  `json:"symbol"`
	TP            float64 `json:"tp"`
	Type          int     `json:"type"`
	Volume        float64 `json:"volume"`
}

// Order is the returnData of tradeTransaction.
type Order struct {
	Order int64 `json:"order"`
}

// TradeStatus is the returnData of tradeTransactionStatus and the data of a
// tradeStatus push.
type TradeStatus struct {
	Ask           *float64 `json:"ask"`
	Bid           *float64 `json:"bid"`
	CustomComment string   `json:"customComment"`
	Message       *string  `json:"message"`
	Order         int64    `json:"order"`
	Price         *float64 `json:"price"`
	RequestStatus int      `json:"requestStatus"`
}
