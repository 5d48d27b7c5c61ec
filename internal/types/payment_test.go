package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentMethodTypeValidate(t *testing.T) {
	tests := []struct {
		name    string
		method  PaymentMethodType
		wantErr bool
	}{
		{name: "card", method: PaymentMethodTypeCard},
		{name: "upi", method: PaymentMethodTypeUPI},
		{name: "netbanking", method: PaymentMethodTypeNetbanking},
		{name: "bank transfer", method: PaymentMethodTypeBankTransfer},
		{name: "cheque", method: PaymentMethodTypeCheque},
		{name: "unknown method rejected", method: PaymentMethodType("crypto"), wantErr: true},
		{name: "empty method rejected", method: PaymentMethodType(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.method.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
