package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phc/analytics-backend/internal/domain/shared"
)

func float(v float64) *float64 { return &v }

func TestAggregateSalesByProduct(t *testing.T) {
	products := []DimProduct{
		{ProductKey: 100, Name: "Produto A"},
		{ProductKey: 200, Name: "Produto B"},
	}
	lines := []FactOrderLine{
		{PrestashopProductID: 100, Quantity: 2, LineTotal: float(39.98)},
		{PrestashopProductID: 100, Quantity: 1, LineTotal: float(19.99)},
		{PrestashopProductID: 200, Quantity: 3, LineTotal: float(89.97)},
	}

	rows, err := AggregateSalesByProduct(lines, products)

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 100, rows[0].ProductKey)
	assert.Equal(t, "Produto A", rows[0].ProductName)
	assert.InDelta(t, 3.0, rows[0].UnitsSold, 0.0001)
	assert.InDelta(t, 59.97, rows[0].Revenue, 0.0001)

	assert.Equal(t, 200, rows[1].ProductKey)
	assert.InDelta(t, 89.97, rows[1].Revenue, 0.0001)
}

func TestAggregateSalesByProduct_UnknownProductKey(t *testing.T) {
	lines := []FactOrderLine{{PrestashopProductID: 999, Quantity: 1}}

	rows, err := AggregateSalesByProduct(lines, []DimProduct{{ProductKey: 100}})

	require.Error(t, err)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, shared.ErrReferentialViolation)
}

func TestAggregateSalesByProduct_NilMeasuresCountAsZero(t *testing.T) {
	products := []DimProduct{{ProductKey: 100, Name: "A"}}
	lines := []FactOrderLine{
		{PrestashopProductID: 100, Quantity: 2, LineTotal: nil},
		{PrestashopProductID: 100, Quantity: 1, LineTotal: float(10)},
	}

	rows, err := AggregateSalesByProduct(lines, products)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 3.0, rows[0].UnitsSold, 0.0001)
	assert.InDelta(t, 10.0, rows[0].Revenue, 0.0001)
}

func TestAggregateSalesByProduct_EmptyInput(t *testing.T) {
	rows, err := AggregateSalesByProduct(nil, nil)
	require.NoError(t, err)
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}
