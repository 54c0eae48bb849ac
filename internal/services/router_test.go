package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func assertAddItem(t *testing.T, want AddItemCommand, got Command) {
	t.Helper()
	cmd, ok := got.(AddItemCommand)
	require.True(t, ok, "expected AddItemCommand, got %T", got)

	assert.Equal(t, want.Name, cmd.Name)
	assert.Equal(t, want.Available, cmd.Available)
	if want.Price == nil {
		assert.Nil(t, cmd.Price)
	} else {
		require.NotNil(t, cmd.Price)
		assert.True(t, want.Price.Equal(*cmd.Price), "price %s", cmd.Price)
	}
}

func TestParseCommand_AddItem(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AddItemCommand
	}{
		{
			name:  "all fields",
			input: "add item name: Classic Burger price: 25 available: yes",
			want:  AddItemCommand{Name: strPtr("Classic Burger"), Price: pricePtr("25"), Available: boolPtr(true)},
		},
		{
			name:  "no fields",
			input: "add item",
			want:  AddItemCommand{},
		},
		{
			name:  "fields in any order",
			input: "Add new item available: no, price: ١٥, name: Fries",
			want:  AddItemCommand{Name: strPtr("Fries"), Price: pricePtr("15"), Available: boolPtr(false)},
		},
		{
			name:  "unlabeled name",
			input: "create item Mango Juice",
			want:  AddItemCommand{Name: strPtr("Mango Juice")},
		},
		{
			name:  "unlabeled name before labels",
			input: "add item Tea price=3",
			want:  AddItemCommand{Name: strPtr("Tea"), Price: pricePtr("3")},
		},
		{
			name:  "invalid price left empty",
			input: "add item name: Tea, price: abc",
			want:  AddItemCommand{Name: strPtr("Tea")},
		},
		{
			name:  "arabic labels",
			input: "add item الاسم: شاورما السعر: ١٢ متوفر: نعم",
			want:  AddItemCommand{Name: strPtr("شاورما"), Price: pricePtr("12"), Available: boolPtr(true)},
		},
		{
			name:  "fullwidth command",
			input: "ａｄｄ ｉｔｅｍ",
			want:  AddItemCommand{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAddItem(t, tt.want, ParseCommand(tt.input))
		})
	}
}

func TestParseCommand_OneShot(t *testing.T) {
	t.Run("edit price", func(t *testing.T) {
		cmd, ok := ParseCommand("edit price classic burger to 27").(EditPriceCommand)
		require.True(t, ok)
		assert.Equal(t, "classic burger", cmd.NameQuery)
		assert.True(t, decimal.NewFromInt(27).Equal(cmd.Price))
	})

	t.Run("change the price of with localized digits", func(t *testing.T) {
		cmd, ok := ParseCommand("Change the price of Fries to ٣٠").(EditPriceCommand)
		require.True(t, ok)
		assert.Equal(t, "Fries", cmd.NameQuery)
		assert.True(t, decimal.NewFromInt(30).Equal(cmd.Price))
	})

	t.Run("edit price with unparseable price falls through", func(t *testing.T) {
		assert.Equal(t, NoMatch{}, ParseCommand("edit price fries to cheap"))
	})

	t.Run("edit price without a name falls through", func(t *testing.T) {
		assert.Equal(t, NoMatch{}, ParseCommand("edit price   to 5"))
		assert.Equal(t, NoMatch{}, ParseCommand("edit price \t to 5"))
	})

	t.Run("toggle", func(t *testing.T) {
		assert.Equal(t, ToggleAvailabilityCommand{NameQuery: "fries", Enable: false}, ParseCommand("disable item fries"))
		assert.Equal(t, ToggleAvailabilityCommand{NameQuery: "Classic Burger", Enable: true}, ParseCommand("Enable item Classic Burger"))
		assert.Equal(t, ToggleAvailabilityCommand{NameQuery: "tea", Enable: false}, ParseCommand("hide item tea"))
	})

	t.Run("search", func(t *testing.T) {
		assert.Equal(t, SearchCommand{Query: "burger"}, ParseCommand("search for burger"))
		assert.Equal(t, SearchCommand{Query: "pizza"}, ParseCommand("  search pizza  "))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Equal(t, NoMatch{}, ParseCommand("hello"))
		assert.Equal(t, NoMatch{}, ParseCommand(""))
		assert.Equal(t, NoMatch{}, ParseCommand("items please"))
	})
}
