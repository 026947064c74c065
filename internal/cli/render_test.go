package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() model.Table {
	return model.NewTable([]model.Transaction{
		{ID: "t1", Date: "2024-04-02", Name: "Uber 072515 SF**POOL**", Amount: 6.33, Category: []string{"Travel", "Taxi"}},
		{ID: "t2", Date: "2024-04-01", Name: "United Airlines", Amount: -500, Category: []string{"Travel", "Airlines and Aviation Services"}},
		{ID: "t3", Date: "2024-03-30", Name: `Touchstone, "Climbing"`, Amount: 78.5},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: "CSV", want: FormatCSV},
		{input: " json ", want: FormatJSON},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTable_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleTable(), FormatTable))

	out := buf.String()
	for _, want := range []string{
		"DATE", "NAME", "AMOUNT", "CATEGORY",
		"Uber 072515 SF**POOL**", "6.33", "Travel > Taxi",
		"-500.00",
		"3 transactions, net -415.17",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderTable_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, model.Table{}, FormatTable))
	assert.Contains(t, buf.String(), "No transactions found.")
}

func TestRenderTable_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleTable(), FormatCSV))

	assert.Equal(t, "date,name,amount,category\n"+
		"2024-04-02,Uber 072515 SF**POOL**,6.33,Travel > Taxi\n"+
		"2024-04-01,United Airlines,-500.00,Travel > Airlines and Aviation Services\n"+
		"2024-03-30,\"Touchstone, \"\"Climbing\"\"\",78.50,\n", buf.String())
}

func TestRenderTable_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleTable(), FormatJSON))

	var got struct {
		Columns []string `json:"columns"`
		Rows    []struct {
			Date     string   `json:"date"`
			Name     string   `json:"name"`
			Amount   string   `json:"amount"`
			Category []string `json:"category"`
		} `json:"rows"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, []string{"date", "name", "amount", "category"}, got.Columns)
	assert.Equal(t, 3, got.Count)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "6.33", got.Rows[0].Amount)
	assert.Equal(t, []string{"Travel", "Taxi"}, got.Rows[0].Category)
	assert.Empty(t, got.Rows[2].Category)
}

func TestRenderTable_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, model.Table{}, FormatJSON))
	assert.JSONEq(t, `{"columns":["date","name","amount","category"],"rows":[],"count":0}`, buf.String())
}

func TestRenderTable_UnknownFormat(t *testing.T) {
	err := RenderTable(&bytes.Buffer{}, sampleTable(), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSummary(t *testing.T) {
	one := model.NewTable([]model.Transaction{{Date: "2024-04-01", Name: "x", Amount: 1}})
	assert.Equal(t, "1 transaction, net 1.00", Summary(one))
	assert.Equal(t, "0 transactions, net 0.00", Summary(model.Table{}))
}

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus(true, "Successfully connected account!"), "Successfully connected account!")
	assert.Contains(t, FormatStatus(false, "Error: boom"), ErrorIcon)
}
