package mpesa

import "fmt"

// CallbackEnvelope is the body the provider POSTs to our callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback reports the outcome of an earlier push. ResultCode 0 means
// the customer paid; anything else is a failure (cancelled, timed out,
// insufficient funds, ...).
type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem is one entry of the loosely-typed key-value list attached
// to successful callbacks. Values are looked up by name, never position.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// Success reports whether the customer completed the payment.
func (s StkCallback) Success() bool {
	return s.ResultCode == 0
}

// MetaString returns the named metadata value as a string, or "" if absent.
func (s StkCallback) MetaString(name string) string {
	for _, item := range s.CallbackMetadata.Item {
		if item.Name == name {
			switch v := item.Value.(type) {
			case string:
				return v
			case float64:
				// JSON numbers decode as float64; receipt-adjacent fields
				// like TransactionDate arrive numeric.
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

// MetaFloat returns the named metadata value as a number, or 0 if absent.
func (s StkCallback) MetaFloat(name string) float64 {
	for _, item := range s.CallbackMetadata.Item {
		if item.Name == name {
			if v, ok := item.Value.(float64); ok {
				return v
			}
		}
	}
	return 0
}
