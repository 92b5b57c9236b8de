package inventory

import (
	"fmt"
	"slices"

	"github.com/coursework/storehub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE: STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store - склад магазина, товары по ID.
// Store не потокобезопасен: сервисы сериализуют доступ сами.
type Store struct {
	items map[shared.ItemID]*Item
}

// NewStore создаёт пустой склад.
func NewStore() *Store {
	return &Store{items: make(map[shared.ItemID]*Item)}
}

// Len возвращает количество товаров.
func (s *Store) Len() int {
	return len(s.items)
}

// Add добавляет товар. Склад хранит собственную копию.
// Возвращает ErrItemAlreadyExists, если ID уже занят.
func (s *Store) Add(item *Item) error {
	if item == nil {
		return invalidItem("Add", "item is nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; ok {
		return &shared.DomainError{
			Domain:  "inventory",
			Op:      "Add",
			Kind:    shared.ErrItemAlreadyExists,
			Message: fmt.Sprintf("item %s already exists", item.ID),
		}
	}
	s.items[item.ID] = item.clone()
	return nil
}

// Get возвращает копию товара.
// Возвращает ErrItemNotFound, если товара нет.
func (s *Store) Get(id shared.ItemID) (*Item, error) {
	item, err := s.lookup("Get", id)
	if err != nil {
		return nil, err
	}
	return item.clone(), nil
}

// Remove удаляет товар со склада.
func (s *Store) Remove(id shared.ItemID) error {
	if _, err := s.lookup("Remove", id); err != nil {
		return err
	}
	delete(s.items, id)
	return nil
}

// Items возвращает копии всех товаров, отсортированные через Compare.
func (s *Store) Items() []*Item {
	out := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.clone())
	}
	slices.SortFunc(out, (*Item).Compare)
	return out
}

// Sell продаёт amount единиц товара и возвращает прибыль.
func (s *Store) Sell(id shared.ItemID, amount int) (shared.Money, error) {
	item, err := s.lookup("Sell", id)
	if err != nil {
		return 0, err
	}
	return item.Sell(amount)
}

// Restocked описывает результат пополнения одного товара.
type Restocked struct {
	ID       shared.ItemID
	OldStock int
	NewStock int
}

// RestockAll пополняет все товары и возвращает те, что изменились, в порядке Items.
func (s *Store) RestockAll() []Restocked {
	var out []Restocked
	for _, snapshot := range s.Items() {
		item := s.items[snapshot.ID]
		old := item.StockLeft
		if item.Restock() > 0 {
			out = append(out, Restocked{ID: item.ID, OldStock: old, NewStock: item.StockLeft})
		}
	}
	return out
}

// LowStock возвращает товары с запасом не больше threshold, в порядке Items.
func (s *Store) LowStock(threshold int) []*Item {
	var out []*Item
	for _, item := range s.Items() {
		if item.IsLow(threshold) {
			out = append(out, item)
		}
	}
	return out
}

// TotalValue возвращает стоимость остатков по закупочной цене.
func (s *Store) TotalValue() shared.Money {
	var total shared.Money
	for _, item := range s.items {
		total += item.BuyPrice.Times(item.StockLeft)
	}
	return total
}

func (s *Store) lookup(op string, id shared.ItemID) (*Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, &shared.DomainError{
			Domain:  "inventory",
			Op:      op,
			Kind:    shared.ErrItemNotFound,
			Message: fmt.Sprintf("item %s not found", id),
		}
	}
	return item, nil
}
