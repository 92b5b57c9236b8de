// Package inventory содержит доменную модель склада магазина: товары,
// продажи, пополнение запаса и текстовый формат сохранения.
// Здесь нет внешних зависимостей.
package inventory

import (
	"fmt"
	"strings"

	"github.com/coursework/storehub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ITEM
// ══════════════════════════════════════════════════════════════════════════════

// Item - товар на складе магазина.
type Item struct {
	// ID - код товара, уникальный в пределах магазина.
	ID shared.ItemID

	// Name - название товара.
	Name string

	// Description - короткое описание для покупателя.
	Description string

	// Business - производитель или поставщик.
	Business string

	// Price - цена продажи до налога.
	Price shared.Money

	// BuyPrice - закупочная цена (налог не применяется).
	BuyPrice shared.Money

	// StockLeft - сколько единиц осталось.
	StockLeft int

	// RestockAmount - до какого количества пополняется запас.
	RestockAmount int

	// Taxed - облагается ли товар налогом.
	Taxed bool
}

// NewItemParams содержит параметры для создания нового товара.
type NewItemParams struct {
	ID            string
	Name          string
	Description   string
	Business      string
	Price         float64
	BuyPrice      float64
	RestockAmount int
}

// NewItem создаёт новый товар с валидацией.
// Запас сразу заполнен до RestockAmount, товар облагается налогом.
func NewItem(params NewItemParams) (*Item, error) {
	id, err := shared.NewItemID(params.ID)
	if err != nil {
		return nil, invalidItem("NewItem", "%v", err)
	}

	item := &Item{
		ID:            id,
		Name:          strings.TrimSpace(params.Name),
		Description:   strings.TrimSpace(params.Description),
		Business:      strings.TrimSpace(params.Business),
		Price:         shared.Money(params.Price),
		BuyPrice:      shared.Money(params.BuyPrice),
		StockLeft:     params.RestockAmount,
		RestockAmount: params.RestockAmount,
		Taxed:         true,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate проверяет инварианты товара.
func (i *Item) Validate() error {
	if !i.ID.IsValid() {
		return invalidItem("Validate", "item ID %q is invalid", i.ID)
	}
	if i.Name == "" {
		return invalidItem("Validate", "item %s has no name", i.ID)
	}
	for _, f := range [...]struct{ name, value string }{
		{"name", i.Name},
		{"description", i.Description},
		{"business", i.Business},
	} {
		if strings.ContainsAny(f.value, "\t\r\n") {
			return invalidItem("Validate", "item %s: %s must not contain tabs or line breaks", i.ID, f.name)
		}
	}
	if !i.Price.IsValid() {
		return invalidItem("Validate", "item %s: price must be non-negative", i.ID)
	}
	if !i.BuyPrice.IsValid() {
		return invalidItem("Validate", "item %s: buy price must be non-negative", i.ID)
	}
	if i.RestockAmount <= 0 {
		return invalidItem("Validate", "item %s: restock amount must be positive", i.ID)
	}
	if i.StockLeft < 0 {
		return invalidItem("Validate", "item %s: stock cannot be negative", i.ID)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BUSINESS METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Sell продаёт amount единиц и возвращает прибыль магазина.
// Налог прибылью не считается. При нехватке запаса товар не меняется.
func (i *Item) Sell(amount int) (shared.Money, error) {
	if amount <= 0 {
		return 0, &shared.DomainError{
			Domain:  "inventory",
			Op:      "Sell",
			Kind:    shared.ErrInvalidQuantity,
			Message: fmt.Sprintf("cannot sell %d units of %s", amount, i.ID),
		}
	}
	if amount > i.StockLeft {
		return 0, &shared.DomainError{
			Domain:  "inventory",
			Op:      "Sell",
			Kind:    shared.ErrInsufficientStock,
			Message: fmt.Sprintf("%s: requested %d, only %d left", i.ID, amount, i.StockLeft),
		}
	}

	i.StockLeft -= amount
	return i.Price.Sub(i.BuyPrice).Times(amount), nil
}

// Restock пополняет запас до RestockAmount и возвращает число добавленных единиц.
// Если на складе уже больше, запас не уменьшается.
func (i *Item) Restock() int {
	if i.StockLeft >= i.RestockAmount {
		return 0
	}
	added := i.RestockAmount - i.StockLeft
	i.StockLeft = i.RestockAmount
	return added
}

// IsLow возвращает true, если запас не больше порога.
func (i *Item) IsLow(threshold int) bool {
	return i.StockLeft <= threshold
}

// IsSoldOut возвращает true, если товар закончился.
func (i *Item) IsSoldOut() bool {
	return i.StockLeft == 0
}

// Compare сравнивает товары по названию, при равных названиях - по ID.
func (i *Item) Compare(other *Item) int {
	if c := strings.Compare(i.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(string(i.ID), string(other.ID))
}

// String возвращает карточку товара для покупателя или кассира.
// Описание всегда последнее.
func (i *Item) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name:  %s\n", i.Name)
	fmt.Fprintf(&sb, "Id:    %s\n", i.ID)
	fmt.Fprintf(&sb, "Price: %s\n", i.Price)
	fmt.Fprintf(&sb, "Stock Left: %d\n", i.StockLeft)
	fmt.Fprintf(&sb, "Manufacturer: %s\n", i.Business)
	fmt.Fprintf(&sb, "Description: %s", i.Description)
	return sb.String()
}

// clone возвращает независимую копию товара.
func (i *Item) clone() *Item {
	c := *i
	return &c
}

func invalidItem(op, format string, args ...any) error {
	return &shared.DomainError{
		Domain:  "inventory",
		Op:      op,
		Kind:    shared.ErrInvalidItem,
		Message: fmt.Sprintf(format, args...),
	}
}
