package dapp

// ResultType tells the result panel how to render an Envelope.
type ResultType string

const (
	ResultBoolean   ResultType = "boolean"
	ResultBigNumber ResultType = "big-number"
	ResultAccount   ResultType = "account"
	ResultTxHash    ResultType = "tx-hash"
	ResultHashArray ResultType = "hash-array"
	ResultArray     ResultType = "array"
	ResultObject    ResultType = "object"
	ResultError     ResultType = "error"
)

// Envelope is the uniform result of every action.
type Envelope struct {
	Type       ResultType `json:"type"`
	Label      string     `json:"label"`
	Result     any        `json:"result"`
	UnitResult any        `json:"unitResult,omitempty"`
	Hint       string     `json:"hint,omitempty"`
}

// ActionData is the caller supplied payload of an action: the field values
// entered on the dashboard plus the calling account.
type ActionData struct {
	From      string `json:"from,omitempty"`
	Account   string `json:"account,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Mode      bool   `json:"mode,omitempty"`
	Increment string `json:"increment,omitempty"`
}
