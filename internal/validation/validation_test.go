package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"150000", 150000, false},
		{" 250000 ", 250000, false},
		{"0", 0, false},
		{"1e3", 1000, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"10.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "amount", apperr.Field(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStruct_UpdateStatusRequest(t *testing.T) {
	err := Struct(dto.UpdateStatusRequest{Status: model.StatusConfirmed})
	assert.NoError(t, err)

	err = Struct(dto.UpdateStatusRequest{Status: "shipped"})
	require.Error(t, err)
	assert.Equal(t, "status", apperr.Field(err))

	err = Struct(dto.UpdateStatusRequest{})
	require.Error(t, err)
	assert.Equal(t, "is required", apperr.Message(err))
}

func TestStruct_UpdatePaymentRequest(t *testing.T) {
	ok := dto.UpdatePaymentRequest{
		PaymentStatus: model.PaymentPaid,
		Amount:        100000,
		ReceiptImages: []string{"https://cdn.example.com/r/1.jpg"},
	}
	assert.NoError(t, Struct(ok))

	// nil deja los comprobantes intactos
	ok.ReceiptImages = nil
	assert.NoError(t, Struct(ok))

	bad := ok
	bad.ReceiptImages = []string{"not a url"}
	err := Struct(bad)
	require.Error(t, err)
	assert.Contains(t, apperr.Field(err), "receiptImages")

	tooMany := ok
	tooMany.ReceiptImages = make([]string, model.MaxReceiptImages+1)
	for i := range tooMany.ReceiptImages {
		tooMany.ReceiptImages[i] = "https://cdn.example.com/r.jpg"
	}
	err = Struct(tooMany)
	require.Error(t, err)
	assert.Equal(t, "receiptImages", apperr.Field(err))

	unknown := ok
	unknown.PaymentStatus = "refunded"
	err = Struct(unknown)
	require.Error(t, err)
	assert.Equal(t, "paymentStatus", apperr.Field(err))
}

func TestGinValidator_IgnoresNonStructs(t *testing.T) {
	v := GinValidator{}
	assert.NoError(t, v.ValidateStruct(nil))
	assert.NoError(t, v.ValidateStruct([]int{1}))
	assert.Error(t, v.ValidateStruct(&dto.UpdateStatusRequest{}))
}
