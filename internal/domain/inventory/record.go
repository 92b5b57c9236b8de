package inventory

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/coursework/storehub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEXT RECORDS
// Одна строка на товар, поля разделены табуляцией:
//   id, name, description, business, price, buy_price, stock_left, restock_amount, taxed
// ══════════════════════════════════════════════════════════════════════════════

// FieldSeparator разделяет поля записи.
const FieldSeparator = "\t"

// recordFields - количество полей в записи.
const recordFields = 9

// MarshalText сериализует склад в текстовые записи, по строке на товар.
// Порядок строк совпадает с Items.
func (s *Store) MarshalText() ([]byte, error) {
	var sb strings.Builder
	for _, item := range s.Items() {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		sb.WriteString(formatRecord(item))
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

// UnmarshalText заменяет содержимое склада разобранными записями.
// При ошибке склад не меняется.
func (s *Store) UnmarshalText(text []byte) error {
	parsed, err := ParseStore(string(text))
	if err != nil {
		return err
	}
	s.items = parsed.items
	return nil
}

// ParseStore разбирает текстовые записи. Пустые строки пропускаются.
func ParseStore(text string) (*Store, error) {
	store := NewStore()

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		item, err := parseRecord(line)
		if err != nil {
			return nil, invalidRecord(lineNo, err)
		}
		if err := store.Add(item); err != nil {
			return nil, invalidRecord(lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, invalidRecord(lineNo+1, err)
	}

	return store, nil
}

// Record возвращает запись товара без перевода строки.
func (i *Item) Record() string {
	return formatRecord(i)
}

func formatRecord(item *Item) string {
	return strings.Join([]string{
		item.ID.String(),
		item.Name,
		item.Description,
		item.Business,
		item.Price.FormatPlain(),
		item.BuyPrice.FormatPlain(),
		strconv.Itoa(item.StockLeft),
		strconv.Itoa(item.RestockAmount),
		strconv.FormatBool(item.Taxed),
	}, FieldSeparator)
}

func parseRecord(line string) (*Item, error) {
	fields := strings.Split(line, FieldSeparator)
	if len(fields) != recordFields {
		return nil, fmt.Errorf("expected %d fields, got %d", recordFields, len(fields))
	}

	price, err := shared.ParseMoney(fields[4])
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	buyPrice, err := shared.ParseMoney(fields[5])
	if err != nil {
		return nil, fmt.Errorf("buy_price: %w", err)
	}
	stockLeft, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("stock_left: %w", err)
	}
	restockAmount, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, fmt.Errorf("restock_amount: %w", err)
	}
	taxed, err := strconv.ParseBool(fields[8])
	if err != nil {
		return nil, fmt.Errorf("taxed: %w", err)
	}

	item := &Item{
		ID:            shared.ItemID(fields[0]),
		Name:          fields[1],
		Description:   fields[2],
		Business:      fields[3],
		Price:         price,
		BuyPrice:      buyPrice,
		StockLeft:     stockLeft,
		RestockAmount: restockAmount,
		Taxed:         taxed,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func invalidRecord(line int, err error) error {
	return &shared.DomainError{
		Domain:  "inventory",
		Op:      "Parse",
		Kind:    shared.ErrInvalidRecord,
		Message: fmt.Sprintf("line %d", line),
		Err:     err,
	}
}
